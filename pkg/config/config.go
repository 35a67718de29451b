// Package config는 viper 기반 설정 로딩을 제공합니다.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// 설정 디렉토리 경로
const configDir = "configs"

// Options는 설정 파일 탐색 방법을 지정합니다.
type Options struct {
	// Name 설정 파일 이름 (확장자 제외)
	Name string
	// EnvPrefix 환경 변수 접두사. 비어 있으면 Name을 대문자로 사용합니다
	EnvPrefix string
	// Defaults 파일과 환경 변수가 없을 때 사용할 기본값
	Defaults map[string]interface{}
}

// Load는 설정 파일과 환경 변수를 읽어 out 구조체에 채웁니다.
// CONFIG_PATH가 파일을 가리키면 그 파일을, 디렉토리를 가리키면 그 안의 {Name}.yaml을 읽습니다.
// 설정 파일이 없으면 기본값과 환경 변수만 사용합니다.
func Load(opts Options, out interface{}) error {
	v := viper.New()
	v.SetConfigType("yaml")

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = opts.Name
	}
	v.SetEnvPrefix(strings.ToUpper(prefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
		v.SetConfigFile(configPath)
	} else {
		if configPath != "" {
			v.AddConfigPath(configPath)
		}
		v.AddConfigPath(configDir)
		v.AddConfigPath(filepath.Join(configDir, "example"))
		v.SetConfigName(opts.Name)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("설정 파일 로드 실패: %w", err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("설정 디코딩 실패: %w", err)
	}
	return nil
}
