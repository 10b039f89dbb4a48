package repository

import (
	"context"
	"errors"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/observability"

	"gorm.io/gorm"
)

const roleEntity = "role"

type RoleRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Role, bool, error)
	List(ctx context.Context) ([]domain.Role, error)
	Ensure(ctx context.Context, role *domain.Role) (bool, error)
	ReplacePermissions(ctx context.Context, role *domain.Role, perms []domain.Permission) (int, error)
}

type GormRoleRepository struct{ db *gorm.DB }

func NewRoleRepository(db *gorm.DB) RoleRepository { return &GormRoleRepository{db: db} }

func (r *GormRoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, bool, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Where("name = ?", name).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &role, true, nil
}

func (r *GormRoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	roles := make([]domain.Role, 0)
	err := r.db.WithContext(ctx).Preload("Permissions").Order("id ASC").Find(&roles).Error
	return roles, err
}

// Ensure loads the role named role.Name into role, creating it first when it
// does not exist. It reports whether a row was inserted.
func (r *GormRoleRepository) Ensure(ctx context.Context, role *domain.Role) (bool, error) {
	res := r.db.WithContext(ctx).Omit("Permissions").Where("name = ?", role.Name).FirstOrCreate(role)
	observability.RecordRepositoryOperation(ctx, roleEntity, "ensure", outcomeOf(res.Error))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReplacePermissions sets the role's permission set to perms and returns how
// many of them were not bound before.
func (r *GormRoleRepository) ReplacePermissions(ctx context.Context, role *domain.Role, perms []domain.Permission) (int, error) {
	added := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []domain.Permission
		if err := tx.Model(role).Association("Permissions").Find(&current); err != nil {
			return err
		}
		bound := make(map[uint]struct{}, len(current))
		for _, p := range current {
			bound[p.ID] = struct{}{}
		}
		for _, p := range perms {
			if _, ok := bound[p.ID]; !ok {
				added++
			}
		}
		if added == 0 && len(current) == len(perms) {
			return nil
		}
		return tx.Model(role).Association("Permissions").Replace(perms)
	})
	observability.RecordRepositoryOperation(ctx, roleEntity, "replace_permissions", outcomeOf(err))
	if err != nil {
		return 0, err
	}
	return added, nil
}
