package database

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSetupDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestInitializeIsIdempotent(t *testing.T) {
	db := newSetupDBForTest(t)
	ctx := context.Background()

	first, err := Initialize(ctx, db, SetupOptions{})
	if err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if first.Version != AppVersion || first.Noop {
		t.Fatalf("expected first run to write data, got %+v", first)
	}
	if first.Seed.CreatedPermissions != len(defaultPermissions) || first.Seed.CreatedRoles != len(defaultRoles) {
		t.Fatalf("unexpected first seed report: %+v", first.Seed)
	}
	if first.Seed.BoundPermissions != 7 {
		t.Fatalf("expected 7 role-permission bindings, got %d", first.Seed.BoundPermissions)
	}

	second, err := Initialize(ctx, db, SetupOptions{})
	if err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if !second.Noop || second.Seed.CreatedPermissions != 0 || second.Seed.CreatedRoles != 0 || second.Seed.BoundPermissions != 0 {
		t.Fatalf("expected second run to be a noop, got %+v", second.Seed)
	}

	var roles int64
	if err := db.Model(&domain.Role{}).Count(&roles).Error; err != nil {
		t.Fatalf("count roles: %v", err)
	}
	if roles != int64(len(defaultRoles)) {
		t.Fatalf("expected %d roles, got %d", len(defaultRoles), roles)
	}
}

func TestInitializeWithDemoUsers(t *testing.T) {
	db := newSetupDBForTest(t)
	ctx := context.Background()

	first, err := Initialize(ctx, db, SetupOptions{SeedDemoUsers: true})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if first.Seed.CreatedUsers != len(demoUsers) {
		t.Fatalf("expected %d demo users, got %d", len(demoUsers), first.Seed.CreatedUsers)
	}

	users, err := repository.NewUserRepository(db).List(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	for _, u := range users {
		if len(u.Roles) != 1 {
			t.Fatalf("expected demo user %s to carry one role, got %d", u.Email, len(u.Roles))
		}
	}

	second, err := Initialize(ctx, db, SetupOptions{SeedDemoUsers: true})
	if err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if !second.Noop || second.Seed.CreatedUsers != 0 {
		t.Fatalf("expected demo seeding to converge, got %+v", second.Seed)
	}
}

func TestInitializeSkipSeedOnlyMigrates(t *testing.T) {
	db := newSetupDBForTest(t)
	report, err := Initialize(context.Background(), db, SetupOptions{SkipSeed: true})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if report.Seed != nil || !report.Noop {
		t.Fatalf("expected migrate-only report, got %+v", report)
	}
	if !db.Migrator().HasTable(&domain.User{}) {
		t.Fatal("expected users table after migrate")
	}
}

func TestPlanMigrations(t *testing.T) {
	db := newSetupDBForTest(t)
	ctx := context.Background()

	plan, err := PlanMigrations(ctx, db)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := []string{"create table permissions", "create table roles", "create table users", "create table role_permissions", "create table user_roles"}
	if strings.Join(plan, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected plan on empty schema: %v", plan)
	}

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	plan, err = PlanMigrations(ctx, db)
	if err != nil {
		t.Fatalf("plan after migrate: %v", err)
	}
	if len(plan) != 0 {
		t.Fatalf("expected empty plan after migrate, got %v", plan)
	}
}

func TestPlanSeedListsDemoUsersOnRequest(t *testing.T) {
	without := PlanSeed(false)
	with := PlanSeed(true)
	if len(with) != len(without)+len(demoUsers) {
		t.Fatalf("expected demo users in plan, got %v", with)
	}
	if !strings.Contains(without[0], "users:read") {
		t.Fatalf("expected permission names in plan, got %q", without[0])
	}
}

func TestSqliteDSNAndLogLevel(t *testing.T) {
	if got := sqliteDSN("sqlite://./data/users.db"); got != "./data/users.db" {
		t.Fatalf("unexpected sqlite dsn %q", got)
	}
	if got := sqliteDSN("file:users?mode=memory"); got != "file:users?mode=memory" {
		t.Fatalf("unexpected file dsn %q", got)
	}
	if gormLogLevel("silent") != gormlogger.Silent || gormLogLevel("bogus") != gormlogger.Warn {
		t.Fatal("unexpected gorm log level mapping")
	}
}
