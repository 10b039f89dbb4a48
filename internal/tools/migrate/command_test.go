package migrate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sandeepkv93/user-center/internal/config"
)

func newMigrateDBForTest(t *testing.T) (*config.Config, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &config.Config{DatabaseURL: "sqlite://" + dsn}, db
}

func TestPlanThenUp(t *testing.T) {
	cfg, db := newMigrateDBForTest(t)
	ctx := context.Background()

	plan, err := Plan(ctx, db)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(strings.Join(plan, "\n"), "create table users") {
		t.Fatalf("expected users table in plan, got %v", plan)
	}

	if _, err := Up(ctx, db, cfg); err != nil {
		t.Fatalf("up: %v", err)
	}

	plan, err = Plan(ctx, db)
	if err != nil {
		t.Fatalf("plan after up: %v", err)
	}
	if plan[0] != "schema is up to date" {
		t.Fatalf("expected empty plan after up, got %v", plan)
	}

	status, err := Status(ctx, db, cfg)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status[1] != "dialect: sqlite" || status[2] != "schema: up to date" {
		t.Fatalf("unexpected status: %v", status)
	}
}

func TestUpDoesNotSeed(t *testing.T) {
	cfg, db := newMigrateDBForTest(t)
	if _, err := Up(context.Background(), db, cfg); err != nil {
		t.Fatalf("up: %v", err)
	}
	var roles int64
	if err := db.Table("roles").Count(&roles).Error; err != nil {
		t.Fatalf("count roles: %v", err)
	}
	if roles != 0 {
		t.Fatalf("expected migrate up to leave roles empty, got %d", roles)
	}
}
