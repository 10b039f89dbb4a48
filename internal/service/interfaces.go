package service

import (
	"context"
	"io"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/repository"
)

type UserServiceInterface interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, bool, error)
	Update(ctx context.Context, id string, in UpdateUserInput) (*domain.User, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, q string) ([]domain.User, error)
	Query(ctx context.Context, q repository.UserQuery) (repository.PageResult[domain.User], error)
}

type AvatarServiceInterface interface {
	Upload(ctx context.Context, userID string, file io.Reader, size int64) (*domain.User, bool, error)
	Open(ctx context.Context, objectKey string) (*AvatarObject, error)
}
