package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/user-center/internal/domain"
	"github.com/sandeepkv93/user-center/internal/repository"
	repogomock "github.com/sandeepkv93/user-center/internal/repository/gomock"
)

func TestInMemoryQueryCacheStoreGetSetInvalidate(t *testing.T) {
	store := NewInMemoryQueryCacheStore()
	ctx := context.Background()

	if err := store.Set(ctx, userQueryNamespace, "k1", []byte(`{"x":1}`), time.Minute); err != nil {
		t.Fatalf("set cache: %v", err)
	}
	got, ok, err := store.Get(ctx, userQueryNamespace, "k1")
	if err != nil || !ok || string(got) != `{"x":1}` {
		t.Fatalf("expected cache hit, got ok=%v payload=%s err=%v", ok, got, err)
	}

	if err := store.InvalidateNamespace(ctx, userQueryNamespace); err != nil {
		t.Fatalf("invalidate namespace: %v", err)
	}
	if _, ok, _ := store.Get(ctx, userQueryNamespace, "k1"); ok {
		t.Fatal("expected cache miss after invalidation")
	}
}

func TestInMemoryQueryCacheStoreExpiry(t *testing.T) {
	store := NewInMemoryQueryCacheStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Set(ctx, userQueryNamespace, "k", []byte(`{}`), time.Second); err != nil {
		t.Fatalf("set cache: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := store.Get(ctx, userQueryNamespace, "k"); ok {
		t.Fatal("expected cache entry to expire")
	}
	if err := store.Set(ctx, userQueryNamespace, "k", []byte(`{}`), 0); err != nil {
		t.Fatalf("set with zero ttl: %v", err)
	}
	if _, ok, _ := store.Get(ctx, userQueryNamespace, "k"); ok {
		t.Fatal("zero ttl must not store")
	}
}

func TestRedisQueryCacheStoreSharedInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	writer := NewRedisQueryCacheStore(client, "test:query")
	reader := NewRedisQueryCacheStore(client, "test:query")
	if err := writer.Set(ctx, userQueryNamespace, "page=1", []byte(`{"total":1}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := reader.Get(ctx, userQueryNamespace, "page=1")
	if err != nil || !ok || string(got) != `{"total":1}` {
		t.Fatalf("expected shared hit, got ok=%v payload=%s err=%v", ok, got, err)
	}

	if err := reader.InvalidateNamespace(ctx, userQueryNamespace); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := writer.Get(ctx, userQueryNamespace, "page=1"); ok {
		t.Fatal("expected miss after invalidation from another instance")
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no leftover keys, got %v", keys)
	}
}

func TestRedisQueryCacheStoreBackendErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisQueryCacheStore(client, "")
	mr.Close()

	if _, _, err := store.Get(context.Background(), userQueryNamespace, "k"); err == nil {
		t.Fatal("expected error with redis down")
	}
}

func TestUserServiceQueryServesFromCacheUntilWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := repogomock.NewMockUserRepository(ctrl)
	q := repository.UserQuery{PageRequest: repository.PageRequest{Page: 1, PageSize: 20}, OrderBy: "name"}
	page := repository.PageResult[domain.User]{
		Items:      []domain.User{{ID: "u-1", Name: "Ann", Email: "ann@x.io", Status: domain.UserStatusActive}},
		Total:      1,
		Page:       1,
		PageSize:   20,
		TotalPages: 1,
	}
	repo.EXPECT().Query(gomock.Any(), q).Return(page, nil).Times(2)
	name := "Bea"
	repo.EXPECT().Update(gomock.Any(), "u-1", gomock.Any()).Return(&domain.User{ID: "u-1", Name: name}, true, nil)
	repo.EXPECT().Update(gomock.Any(), "missing", gomock.Any()).Return(nil, false, nil)

	svc := NewUserService(repo).WithQueryCache(NewInMemoryQueryCacheStore(), time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := svc.Query(ctx, q)
		if err != nil || got.Total != 1 || len(got.Items) != 1 || got.Items[0].Email != "ann@x.io" {
			t.Fatalf("query %d: got %+v err=%v", i, got, err)
		}
	}

	// A not-found update leaves the cache alone.
	if _, found, err := svc.Update(ctx, "missing", UpdateUserInput{Name: &name}); err != nil || found {
		t.Fatalf("update missing: found=%v err=%v", found, err)
	}
	if _, err := svc.Query(ctx, q); err != nil {
		t.Fatalf("cached query: %v", err)
	}

	if _, _, err := svc.Update(ctx, "u-1", UpdateUserInput{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Query(ctx, q); err != nil {
		t.Fatalf("query after write: %v", err)
	}
}

func TestUserServiceQueryWithoutCacheAlwaysHitsGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := repogomock.NewMockUserRepository(ctrl)
	q := repository.UserQuery{PageRequest: repository.PageRequest{Page: 1, PageSize: 5}}
	repo.EXPECT().Query(gomock.Any(), q).Return(repository.PageResult[domain.User]{Page: 1, PageSize: 5}, nil).Times(2)

	svc := NewUserService(repo)
	for i := 0; i < 2; i++ {
		if _, err := svc.Query(context.Background(), q); err != nil {
			t.Fatalf("query: %v", err)
		}
	}
}
