package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/observability"

	"gorm.io/gorm"
)

// Models lists every migrated model in dependency order.
func Models() []any {
	return []any{&domain.Permission{}, &domain.Role{}, &domain.User{}}
}

var joinTables = []string{"role_permissions", "user_roles"}

func Migrate(ctx context.Context, db *gorm.DB) error {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "migrate", time.Since(start))
	}()
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "migrate", "error")
		return fmt.Errorf("auto migrate: %w", err)
	}
	observability.RecordDatabaseStartupEvent(ctx, "migrate", "success")
	return nil
}

// PlanMigrations describes what Migrate would change without touching the
// schema. An empty plan means the schema is current.
func PlanMigrations(ctx context.Context, db *gorm.DB) ([]string, error) {
	tx := db.WithContext(ctx)
	m := tx.Migrator()
	var plan []string
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: tx}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table
		if !m.HasTable(model) {
			plan = append(plan, "create table "+table)
			continue
		}
		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" {
				continue
			}
			if !m.HasColumn(model, field.DBName) {
				plan = append(plan, fmt.Sprintf("add column %s.%s", table, field.DBName))
			}
		}
	}
	for _, table := range joinTables {
		if !m.HasTable(table) {
			plan = append(plan, "create table "+table)
		}
	}
	return plan, nil
}
