package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/observability"
	"github.com/sandeepkv93/user-center/internal/repository"

	"gorm.io/gorm"
)

var defaultPermissions = []domain.Permission{
	{Name: "menu:user-center", Description: "User center navigation entry", Type: domain.PermissionTypeMenu},
	{Name: "users:read", Description: "View users", Type: domain.PermissionTypeOperation},
	{Name: "users:write", Description: "Create and edit users", Type: domain.PermissionTypeOperation},
	{Name: "users:delete", Description: "Delete users", Type: domain.PermissionTypeOperation},
	{Name: "users:export", Description: "Read user data in bulk", Type: domain.PermissionTypeData},
}

type roleSeed struct {
	name        string
	description string
	permissions []string
}

var defaultRoles = []roleSeed{
	{
		name:        "admin",
		description: "Administrator role",
		permissions: []string{"menu:user-center", "users:read", "users:write", "users:delete", "users:export"},
	},
	{
		name:        "user",
		description: "Default user role",
		permissions: []string{"menu:user-center", "users:read"},
	},
}

var demoUsers = []struct {
	user domain.User
	role string
}{
	{domain.User{Name: "张三", Email: "zhangsan@example.com", Status: domain.UserStatusActive}, "admin"},
	{domain.User{Name: "李四", Email: "lisi@example.com", Status: domain.UserStatusActive}, "user"},
	{domain.User{Name: "王五", Email: "wangwu@example.com", Status: domain.UserStatusInactive}, "user"},
}

type SeedReport struct {
	CreatedPermissions int  `json:"created_permissions"`
	CreatedRoles       int  `json:"created_roles"`
	BoundPermissions   int  `json:"bound_permissions"`
	CreatedUsers       int  `json:"created_users"`
	Noop               bool `json:"noop"`
}

// Seed ensures the default permissions and roles exist and that each role
// carries exactly its default permission set.
func Seed(ctx context.Context, roles repository.RoleRepository, perms repository.PermissionRepository) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()

	report, err := seed(ctx, roles, perms)
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, err
	}
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return report, nil
}

func seed(ctx context.Context, roles repository.RoleRepository, perms repository.PermissionRepository) (*SeedReport, error) {
	report := &SeedReport{}
	for _, p := range defaultPermissions {
		p := p
		created, err := perms.Ensure(ctx, &p)
		if err != nil {
			return nil, fmt.Errorf("ensure permission %s: %w", p.Name, err)
		}
		if created {
			report.CreatedPermissions++
		}
	}

	for _, rs := range defaultRoles {
		role := &domain.Role{Name: rs.name, Description: rs.description}
		created, err := roles.Ensure(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("ensure role %s: %w", rs.name, err)
		}
		if created {
			report.CreatedRoles++
		}
		wanted, err := perms.FindByNames(ctx, rs.permissions)
		if err != nil {
			return nil, fmt.Errorf("load permissions for %s: %w", rs.name, err)
		}
		bound, err := roles.ReplacePermissions(ctx, role, wanted)
		if err != nil {
			return nil, fmt.Errorf("bind permissions to %s: %w", rs.name, err)
		}
		report.BoundPermissions += bound
	}

	report.Noop = report.CreatedPermissions == 0 && report.CreatedRoles == 0 && report.BoundPermissions == 0
	return report, nil
}

// SeedDemoUsers inserts the sample accounts that are missing and binds their
// role. Existing accounts with the same email are left alone.
func SeedDemoUsers(ctx context.Context, db *gorm.DB, users repository.UserRepository, roles repository.RoleRepository) (int, error) {
	created := 0
	for _, demo := range demoUsers {
		u := demo.user
		res := db.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(&u)
		if res.Error != nil {
			return created, fmt.Errorf("ensure demo user %s: %w", u.Email, res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		created++
		role, found, err := roles.FindByName(ctx, demo.role)
		if err != nil {
			return created, fmt.Errorf("load role %s: %w", demo.role, err)
		}
		if !found {
			continue
		}
		if _, err := users.AssignRoles(ctx, u.ID, []uint{role.ID}); err != nil {
			return created, fmt.Errorf("assign role %s to %s: %w", demo.role, u.Email, err)
		}
	}
	return created, nil
}

// PlanSeed describes what Seed and SeedDemoUsers would write.
func PlanSeed(withDemoUsers bool) []string {
	names := make([]string, 0, len(defaultPermissions))
	for _, p := range defaultPermissions {
		names = append(names, p.Name)
	}
	plan := []string{"would ensure permissions: " + strings.Join(names, ", ")}
	for _, rs := range defaultRoles {
		plan = append(plan, fmt.Sprintf("would ensure role %s with permissions: %s", rs.name, strings.Join(rs.permissions, ", ")))
	}
	if withDemoUsers {
		for _, demo := range demoUsers {
			plan = append(plan, fmt.Sprintf("would ensure demo user %s (%s)", demo.user.Email, demo.role))
		}
	}
	return plan
}
