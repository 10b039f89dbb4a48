package service

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/observability"
	"github.com/sandeepkv93/user-center/internal/repository"
)

type CreateUserInput struct {
	Name   string
	Email  string
	Avatar string
	Status domain.UserStatus
}

// UpdateUserInput carries a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Name   *string
	Email  *string
	Avatar *string
	Status *domain.UserStatus
}

// UserService forwards user operations to the gateway unchanged. Results and
// errors pass through as-is; the service only adds operation metrics and the
// optional paged-query cache.
type UserService struct {
	users    repository.UserRepository
	cache    QueryCacheStore
	cacheTTL time.Duration
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// WithQueryCache caches Query pages in store for ttl. Successful writes drop
// every cached page.
func (s *UserService) WithQueryCache(store QueryCacheStore, ttl time.Duration) *UserService {
	s.cache = store
	s.cacheTTL = ttl
	return s
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (user *domain.User, err error) {
	ctx, end := s.start(ctx, "create")
	defer end(&err, nil)
	u := &domain.User{Name: in.Name, Email: in.Email, Avatar: in.Avatar, Status: in.Status}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.invalidateQueries(ctx)
	return u, nil
}

func (s *UserService) List(ctx context.Context) (users []domain.User, err error) {
	ctx, end := s.start(ctx, "list")
	defer end(&err, nil)
	return s.users.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id string) (user *domain.User, found bool, err error) {
	ctx, end := s.start(ctx, "get")
	defer end(&err, &found)
	return s.users.FindByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (user *domain.User, found bool, err error) {
	ctx, end := s.start(ctx, "update")
	defer end(&err, &found)
	user, found, err = s.users.Update(ctx, id, repository.UserChanges{
		Name:   in.Name,
		Email:  in.Email,
		Avatar: in.Avatar,
		Status: in.Status,
	})
	if err == nil && found {
		s.invalidateQueries(ctx)
	}
	return user, found, err
}

func (s *UserService) Delete(ctx context.Context, id string) (found bool, err error) {
	ctx, end := s.start(ctx, "delete")
	defer end(&err, &found)
	found, err = s.users.Delete(ctx, id)
	if err == nil && found {
		s.invalidateQueries(ctx)
	}
	return found, err
}

func (s *UserService) Search(ctx context.Context, q string) (users []domain.User, err error) {
	ctx, end := s.start(ctx, "search")
	defer end(&err, nil)
	return s.users.Search(ctx, q)
}

func (s *UserService) Query(ctx context.Context, q repository.UserQuery) (page repository.PageResult[domain.User], err error) {
	ctx, end := s.start(ctx, "query")
	defer end(&err, nil)
	if s.cache == nil {
		return s.users.Query(ctx, q)
	}

	key := userQueryCacheKey(q)
	raw, ok, cacheErr := s.cache.Get(ctx, userQueryNamespace, key)
	switch {
	case cacheErr != nil:
		observability.RecordQueryCacheEvent(ctx, "get", "error")
	case ok:
		var cached repository.PageResult[domain.User]
		if json.Unmarshal(raw, &cached) == nil {
			observability.RecordQueryCacheEvent(ctx, "get", "hit")
			return cached, nil
		}
		observability.RecordQueryCacheEvent(ctx, "get", "corrupt")
	default:
		observability.RecordQueryCacheEvent(ctx, "get", "miss")
	}

	page, err = s.users.Query(ctx, q)
	if err != nil {
		return page, err
	}
	if payload, mErr := json.Marshal(page); mErr == nil {
		if err := s.cache.Set(ctx, userQueryNamespace, key, payload, s.cacheTTL); err != nil {
			observability.RecordQueryCacheEvent(ctx, "set", "error")
		}
	}
	return page, nil
}

func (s *UserService) invalidateQueries(ctx context.Context) {
	invalidateUserQueries(ctx, s.cache)
}

func invalidateUserQueries(ctx context.Context, cache QueryCacheStore) {
	if cache == nil {
		return
	}
	outcome := "success"
	if err := cache.InvalidateNamespace(ctx, userQueryNamespace); err != nil {
		outcome = "error"
	}
	observability.RecordQueryCacheEvent(ctx, "invalidate", outcome)
}

// start opens a span for op. The returned func records the outcome metric
// and ends the span; found is nil for operations without a not-found result.
func (s *UserService) start(ctx context.Context, op string) (context.Context, func(err *error, found *bool)) {
	began := time.Now()
	ctx, span := observability.StartSpan(ctx, "user."+op)
	return ctx, func(err *error, found *bool) {
		outcome := "success"
		switch {
		case *err != nil:
			outcome = "error"
		case found != nil && !*found:
			outcome = "not_found"
		}
		span.SetAttributes(attribute.String("user.outcome", outcome))
		observability.RecordUserOperation(ctx, op, outcome, time.Since(began))
		observability.EndSpan(span, *err)
	}
}
