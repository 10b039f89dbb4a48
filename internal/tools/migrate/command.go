package migrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/user-center/internal/config"
	"github.com/sandeepkv93/user-center/internal/database"
	"github.com/sandeepkv93/user-center/internal/tools/common"
	"github.com/sandeepkv93/user-center/internal/tools/ui"
)

const toolName = "migrate"

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tooling",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newUpCommand(opts),
		newStatusCommand(opts),
		newPlanCommand(opts),
	)
	return cmd
}

func newUpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "up", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(ctx, opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() { _ = database.Close(db) }()
				return Up(ctx, db, cfg)
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connectivity and pending schema changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "status", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(ctx, opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() { _ = database.Close(db) }()
				return Status(ctx, db, cfg)
			})
		},
	}
}

func newPlanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show migration plan (dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "plan", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(ctx, opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() { _ = database.Close(db) }()
				return Plan(ctx, db)
			})
		},
	}
}

// Up migrates the schema without seeding.
func Up(ctx context.Context, db *gorm.DB, cfg *config.Config) ([]string, error) {
	report, err := database.Initialize(ctx, db, database.SetupOptions{SkipSeed: true})
	if err != nil {
		return nil, err
	}
	return []string{
		"schema migration applied",
		"dialect: " + cfg.DatabaseDialect(),
		"version: " + report.Version,
		"duration: " + report.Duration,
	}, nil
}

func Status(ctx context.Context, db *gorm.DB, cfg *config.Config) ([]string, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	plan, err := database.PlanMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	state := "up to date"
	if len(plan) > 0 {
		state = fmt.Sprintf("%d pending change(s)", len(plan))
	}
	return []string{"database reachable", "dialect: " + cfg.DatabaseDialect(), "schema: " + state}, nil
}

func Plan(ctx context.Context, db *gorm.DB) ([]string, error) {
	plan, err := database.PlanMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return []string{"schema is up to date", "no mutation executed in plan mode"}, nil
	}
	return append(plan, "no mutation executed in plan mode"), nil
}

func execute(opts *options, command string, fn func(context.Context) ([]string, error)) error {
	title := toolName + " " + command
	start := time.Now()
	details, err := run(opts, title, fn)
	common.RecordCommand(context.Background(), toolName, command, start, err)
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
	}
	if err != nil {
		os.Exit(3)
	}
	return nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func loadConfigDB(ctx context.Context, envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
