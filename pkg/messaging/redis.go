// Package messaging은 Redis pub/sub 기반 이벤트 발행을 제공합니다.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher 이벤트 발행 인터페이스
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RedisPublisher Redis 채널로 JSON 메시지를 발행합니다
type RedisPublisher struct {
	client redis.UniversalClient
}

// NewRedisPublisher 기존 Redis 클라이언트로 발행자를 생성합니다
func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish 메시지를 JSON으로 직렬화해 발행합니다
func (p *RedisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("메시지 직렬화 실패: %w", err)
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("메시지 발행 실패: %w", err)
	}
	return nil
}

// NopPublisher Redis가 설정되지 않은 환경에서 사용하는 발행자입니다
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
