package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/observability"
	"github.com/sandeepkv93/user-center/internal/repository"
)

// AvatarURLPrefix is the public path under which stored avatars are served.
const AvatarURLPrefix = "/avatars/"

// AvatarService uploads avatar images and points the user's avatar field at
// the stored object.
type AvatarService struct {
	users   repository.UserRepository
	storage StorageService
	cache   QueryCacheStore
}

func NewAvatarService(users repository.UserRepository, storage StorageService) *AvatarService {
	return &AvatarService{users: users, storage: storage}
}

// WithQueryCache makes avatar changes drop the cached user pages.
func (s *AvatarService) WithQueryCache(store QueryCacheStore) *AvatarService {
	s.cache = store
	return s
}

func (s *AvatarService) Upload(ctx context.Context, userID string, file io.Reader, size int64) (*domain.User, bool, error) {
	current, found, err := s.users.FindByID(ctx, userID)
	if err != nil || !found {
		observability.RecordAvatarStorageEvent(ctx, "upload", outcomeFor(err, found))
		return nil, found, err
	}

	key, err := s.storage.UploadAvatar(ctx, userID, file, size)
	if err != nil {
		observability.RecordAvatarStorageEvent(ctx, "upload", rejectionOutcome(err))
		return nil, true, err
	}

	avatar := AvatarURLPrefix + key
	updated, found, err := s.users.Update(ctx, userID, repository.UserChanges{Avatar: &avatar})
	if err != nil || !found {
		_ = s.storage.DeleteAvatar(ctx, userID, key)
		observability.RecordAvatarStorageEvent(ctx, "upload", outcomeFor(err, found))
		return nil, found, err
	}
	observability.RecordAvatarStorageEvent(ctx, "upload", "success")
	invalidateUserQueries(ctx, s.cache)

	if prev, ok := strings.CutPrefix(current.Avatar, AvatarURLPrefix); ok && prev != key {
		outcome := "success"
		if err := s.storage.DeleteAvatar(ctx, userID, prev); err != nil {
			outcome = "error"
		}
		observability.RecordAvatarStorageEvent(ctx, "delete_previous", outcome)
	}
	return updated, true, nil
}

func (s *AvatarService) Open(ctx context.Context, objectKey string) (*AvatarObject, error) {
	obj, err := s.storage.OpenAvatar(ctx, objectKey)
	switch {
	case errors.Is(err, ErrObjectNotFound):
		observability.RecordAvatarStorageEvent(ctx, "open", "not_found")
	case err != nil:
		observability.RecordAvatarStorageEvent(ctx, "open", "error")
	default:
		observability.RecordAvatarStorageEvent(ctx, "open", "success")
	}
	return obj, err
}

func outcomeFor(err error, found bool) string {
	switch {
	case err != nil:
		return "error"
	case !found:
		return "not_found"
	default:
		return "success"
	}
}

func rejectionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrFileTooBig):
		return "too_large"
	case errors.Is(err, ErrInvalidFileType):
		return "invalid_type"
	default:
		return "error"
	}
}
