package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sandeepkv93/user-center/internal/observability"
	"github.com/sandeepkv93/user-center/internal/repository"

	"gorm.io/gorm"
)

// AppVersion is reported by setup and the health endpoints.
const AppVersion = "1.0.0"

type SetupOptions struct {
	SkipSeed      bool
	SeedDemoUsers bool
}

type SetupReport struct {
	Version  string      `json:"version"`
	Seed     *SeedReport `json:"seed,omitempty"`
	Duration string      `json:"duration"`
	Noop     bool        `json:"noop"`
}

// Initialize migrates the schema and seeds reference data. It holds no
// process state: every run converges on the same rows, and a run that
// changes nothing reports Noop.
func Initialize(ctx context.Context, db *gorm.DB, opts SetupOptions) (*SetupReport, error) {
	start := time.Now()
	report := &SetupReport{Version: AppVersion, Noop: true}

	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}

	if !opts.SkipSeed {
		roles := repository.NewRoleRepository(db)
		seedReport, err := Seed(ctx, roles, repository.NewPermissionRepository(db))
		if err != nil {
			return nil, err
		}
		if opts.SeedDemoUsers {
			n, err := SeedDemoUsers(ctx, db, repository.NewUserRepository(db), roles)
			if err != nil {
				return nil, fmt.Errorf("seed demo users: %w", err)
			}
			seedReport.CreatedUsers = n
			seedReport.Noop = seedReport.Noop && n == 0
		}
		report.Seed = seedReport
		report.Noop = seedReport.Noop

		observability.RecordSetupReport(ctx, "created_permissions", seedReport.CreatedPermissions)
		observability.RecordSetupReport(ctx, "created_roles", seedReport.CreatedRoles)
		observability.RecordSetupReport(ctx, "bound_permissions", seedReport.BoundPermissions)
		observability.RecordSetupReport(ctx, "created_users", seedReport.CreatedUsers)
	}

	report.Duration = time.Since(start).String()
	return report, nil
}
