// Command billingctl runs operator maintenance against the billing ledger.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/bootstrap"
	"github.com/codeabuu/simplifydocs/internal/config"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/database"
	"github.com/codeabuu/simplifydocs/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "billingctl",
	Short:         "SimplifyDocs billing maintenance",
	Long:          `Refresh ledger rows from Paystack, provision and sync plans, and clean up dangling provider subscriptions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrate bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&migrate, "migrate", false, "run database migrations before the command")
	rootCmd.AddCommand(refreshCmd, provisionPlansCmd, syncPlansCmd, clearDanglingCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runtime is what every command needs after configuration is loaded.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	usecases *bootstrap.UseCases
}

// withRuntime loads configuration, opens the stores and runs fn. The context
// is cancelled on SIGINT or SIGTERM.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(zap.String("command", cmd.Name()))

	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if migrate {
		if err := database.Migrate(db, zapLogger); err != nil {
			return err
		}
	}

	rdb, err := database.NewRedisClient(cfg.Redis, zapLogger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	usecases, err := bootstrap.NewUseCases(cfg, db, rdb, zapLogger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return fn(ctx, &runtime{cfg: cfg, logger: zapLogger, usecases: usecases})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
