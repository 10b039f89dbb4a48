package seed

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

const toolName = "seed"

type options struct {
	envFile   string
	demoUsers bool
	ci        bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Database seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().BoolVar(&opts.demoUsers, "with-demo-users", false, "also insert sample user accounts")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newDemoUsersCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Migrate and apply default seed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "apply", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(ctx, opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() { _ = database.Close(db) }()
				return Apply(ctx, db, opts.demoUsers || cfg.SeedDemoUsers)
			})
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "dry-run", func(ctx context.Context) ([]string, error) {
				return database.PlanSeed(opts.demoUsers), nil
			})
		},
	}
}

func newDemoUsersCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "demo-users",
		Short: "Insert the sample user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "demo-users", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(ctx, opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() { _ = database.Close(db) }()
				return Apply(ctx, db, true)
			})
		},
	}
}

// Apply runs setup with seeding and summarises what changed.
func Apply(ctx context.Context, db *gorm.DB, demoUsers bool) ([]string, error) {
	report, err := database.Initialize(ctx, db, database.SetupOptions{SeedDemoUsers: demoUsers})
	if err != nil {
		return nil, err
	}
	if report.Noop {
		return []string{"seed data already present", "version: " + report.Version}, nil
	}
	return []string{
		fmt.Sprintf("created permissions: %d", report.Seed.CreatedPermissions),
		fmt.Sprintf("created roles: %d", report.Seed.CreatedRoles),
		fmt.Sprintf("bound role permissions: %d", report.Seed.BoundPermissions),
		fmt.Sprintf("created users: %d", report.Seed.CreatedUsers),
		"version: " + report.Version,
	}, nil
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
		return fn(context.Background())
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
