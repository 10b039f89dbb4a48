package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	sqlDB, err := c.db.DB()
	if err != nil {
		return unhealthy("db", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unhealthy("db", err)
	}
	return CheckResult{Name: "db", Healthy: true}
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return unhealthy("redis", err)
	}
	return CheckResult{Name: "redis", Healthy: true}
}

// BucketProber is the part of the MinIO client the storage check needs.
type BucketProber interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

type StorageChecker struct {
	client BucketProber
	bucket string
}

func NewStorageChecker(client BucketProber, bucket string) Checker {
	if client == nil {
		return nil
	}
	return &StorageChecker{client: client, bucket: bucket}
}

func (c *StorageChecker) Check(ctx context.Context) CheckResult {
	ok, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return unhealthy("storage", err)
	}
	if !ok {
		return unhealthy("storage", fmt.Errorf("bucket %q does not exist", c.bucket))
	}
	return CheckResult{Name: "storage", Healthy: true}
}

func unhealthy(name string, err error) CheckResult {
	return CheckResult{Name: name, Healthy: false, Error: err.Error()}
}
