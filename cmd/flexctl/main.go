package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/msdp-platform/msdp-flexstaff/internal/bootstrap"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/apperror"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/connection"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cliApp holds the connections shared by every command.
type cliApp struct {
	ctx    context.Context
	gormDB *gorm.DB
	db     *sql.DB
	logger *zap.Logger
}

var (
	retries int
	app     *cliApp
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flexctl",
		Short: "FlexStaff operations tool",
		Long:  `Schema migration, manual settlement and dispute review for the FlexStaff marketplace.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app == nil {
				return
			}
			if app.db != nil {
				_ = app.db.Close()
			}
			_ = app.logger.Sync()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().IntVar(&retries, "retries", 3, "database connection attempts")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(settleCmd())
	rootCmd.AddCommand(disputesCmd())
	rootCmd.AddCommand(outboxCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func initApp(ctx context.Context) error {
	_ = godotenv.Load()

	logger, err := bootstrap.NewLogger()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	apperror.Init()

	gormDB, err := connection.ConnectGORMWithRetry(connection.PostgresConfigFromEnv(), retries)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	app = &cliApp{ctx: ctx, gormDB: gormDB, db: sqlDB, logger: logger.Named("flexctl")}
	return nil
}
