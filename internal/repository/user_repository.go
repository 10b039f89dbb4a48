package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/observability"

	"gorm.io/gorm"
)

const userEntity = "user"

// UserChanges carries a partial update. Nil fields are left untouched.
type UserChanges struct {
	Name   *string
	Email  *string
	Avatar *string
	Status *domain.UserStatus
}

type UserQuery struct {
	PageRequest
	Search  string
	Status  domain.UserStatus
	RoleID  uint
	OrderBy string
	Order   string
}

// UserRepository is the persistence gateway for users. Lookups report absence
// through the found flag rather than an error.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	List(ctx context.Context) ([]domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, bool, error)
	Update(ctx context.Context, id string, changes UserChanges) (*domain.User, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, q string) ([]domain.User, error)
	Query(ctx context.Context, q UserQuery) (PageResult[domain.User], error)
	AssignRoles(ctx context.Context, id string, roleIDs []uint) (bool, error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"email":     "email",
	"status":    "status",
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Omit("Roles").Create(user).Error
	observability.RecordRepositoryOperation(ctx, userEntity, "create", outcomeOf(err))
	return err
}

func (r *GormUserRepository) List(ctx context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0)
	err := r.db.WithContext(ctx).Preload("Roles").Order("created_at DESC").Find(&users).Error
	observability.RecordRepositoryOperation(ctx, userEntity, "list", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return nonNil(users), nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*domain.User, bool, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		observability.RecordRepositoryOperation(ctx, userEntity, "find_by_id", "not_found")
		return nil, false, nil
	case err != nil:
		observability.RecordRepositoryOperation(ctx, userEntity, "find_by_id", "error")
		return nil, false, err
	}
	observability.RecordRepositoryOperation(ctx, userEntity, "find_by_id", "success")
	return &u, true, nil
}

func (r *GormUserRepository) Update(ctx context.Context, id string, changes UserChanges) (*domain.User, bool, error) {
	values := map[string]any{"updated_at": time.Now().UTC()}
	if changes.Name != nil {
		values["name"] = *changes.Name
	}
	if changes.Email != nil {
		values["email"] = *changes.Email
	}
	if changes.Avatar != nil {
		values["avatar"] = *changes.Avatar
	}
	if changes.Status != nil {
		values["status"] = *changes.Status
	}

	var updated domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).Where("id = ?", id).Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Preload("Roles").Where("id = ?", id).First(&updated).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		observability.RecordRepositoryOperation(ctx, userEntity, "update", "not_found")
		return nil, false, nil
	case err != nil:
		observability.RecordRepositoryOperation(ctx, userEntity, "update", "error")
		return nil, false, err
	}
	observability.RecordRepositoryOperation(ctx, userEntity, "update", "success")
	return &updated, true, nil
}

func (r *GormUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_roles WHERE user_id = ?", id).Error; err != nil {
			return fmt.Errorf("clear user roles: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&domain.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		observability.RecordRepositoryOperation(ctx, userEntity, "delete", "not_found")
		return false, nil
	case err != nil:
		observability.RecordRepositoryOperation(ctx, userEntity, "delete", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(ctx, userEntity, "delete", "success")
	return true, nil
}

func (r *GormUserRepository) Search(ctx context.Context, q string) ([]domain.User, error) {
	users := make([]domain.User, 0)
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Scopes(matchNameOrEmail(q)).
		Order("created_at DESC").
		Find(&users).Error
	observability.RecordRepositoryOperation(ctx, userEntity, "search", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	return nonNil(users), nil
}

func (r *GormUserRepository) Query(ctx context.Context, q UserQuery) (PageResult[domain.User], error) {
	page := normalizePageRequest(q.PageRequest)
	order, err := orderClause(userSortColumns, q.OrderBy, q.Order, "createdAt")
	if err != nil {
		observability.RecordRepositoryOperation(ctx, userEntity, "query", "error")
		return PageResult[domain.User]{}, err
	}
	filters := userFilters(q)

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Scopes(filters).Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, userEntity, "query", "error")
		return PageResult[domain.User]{}, err
	}
	users := make([]domain.User, 0, page.PageSize)
	if err := r.db.WithContext(ctx).
		Preload("Roles").
		Scopes(filters).
		Order(order).
		Order("id ASC").
		Offset(page.offset()).
		Limit(page.PageSize).
		Find(&users).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, userEntity, "query", "error")
		return PageResult[domain.User]{}, err
	}

	observability.RecordRepositoryOperation(ctx, userEntity, "query", "success")
	return PageResult[domain.User]{
		Items:      nonNil(users),
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: calcTotalPages(total, page.PageSize),
	}, nil
}

func (r *GormUserRepository) AssignRoles(ctx context.Context, id string, roleIDs []uint) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u domain.User
		if err := tx.Where("id = ?", id).First(&u).Error; err != nil {
			return err
		}
		roles := make([]domain.Role, 0, len(roleIDs))
		if len(roleIDs) > 0 {
			if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
				return err
			}
		}
		return tx.Model(&u).Association("Roles").Replace(roles)
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		observability.RecordRepositoryOperation(ctx, userEntity, "assign_roles", "not_found")
		return false, nil
	case err != nil:
		observability.RecordRepositoryOperation(ctx, userEntity, "assign_roles", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(ctx, userEntity, "assign_roles", "success")
	return true, nil
}

// matchNameOrEmail is a case-insensitive substring match on name or email.
// SQLite connections opened through sqlitefold fold non-ASCII text in lower().
func matchNameOrEmail(q string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		pattern := likePattern(q)
		if db.Dialector.Name() == "postgres" {
			return db.Where(`(name ILIKE ? ESCAPE '\' OR email ILIKE ? ESCAPE '\')`, pattern, pattern)
		}
		return db.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
}

func userFilters(q UserQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Search != "" {
			db = matchNameOrEmail(q.Search)(db)
		}
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		if q.RoleID != 0 {
			db = db.Where("id IN (?)", db.Session(&gorm.Session{NewDB: true}).
				Table("user_roles").Select("user_id").Where("role_id = ?", q.RoleID))
		}
		return db
	}
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
