package repository

import (
	"context"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/observability"

	"gorm.io/gorm"
)

type PermissionRepository interface {
	List(ctx context.Context) ([]domain.Permission, error)
	FindByNames(ctx context.Context, names []string) ([]domain.Permission, error)
	Ensure(ctx context.Context, perm *domain.Permission) (bool, error)
}

type GormPermissionRepository struct{ db *gorm.DB }

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &GormPermissionRepository{db: db}
}

func (r *GormPermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	perms := make([]domain.Permission, 0)
	err := r.db.WithContext(ctx).Order("name ASC").Find(&perms).Error
	return perms, err
}

func (r *GormPermissionRepository) FindByNames(ctx context.Context, names []string) ([]domain.Permission, error) {
	perms := make([]domain.Permission, 0, len(names))
	if len(names) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("name IN ?", names).Order("name ASC").Find(&perms).Error
	return perms, err
}

func (r *GormPermissionRepository) Ensure(ctx context.Context, perm *domain.Permission) (bool, error) {
	res := r.db.WithContext(ctx).Where("name = ?", perm.Name).FirstOrCreate(perm)
	observability.RecordRepositoryOperation(ctx, "permission", "ensure", outcomeOf(res.Error))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
