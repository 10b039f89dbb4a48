package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	MaxAvatarSize    = 5 * 1024 * 1024
	avatarPathPrefix = "avatars"
	sniffLen         = 512

	bucketInitTimeout = 10 * time.Second
)

var (
	ErrFileTooBig           = errors.New("file size exceeds 5MB limit")
	ErrInvalidFileType      = errors.New("invalid file type, only JPEG and PNG images are allowed")
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrUploadFailed         = errors.New("failed to upload file")
	ErrDeleteFailed         = errors.New("failed to delete file")
	ErrObjectNotFound       = errors.New("storage object not found")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to resource")

	allowedContentTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
	}
)

// StorageService stores avatar images in object storage under a per-user
// key prefix.
type StorageService interface {
	UploadAvatar(ctx context.Context, userID string, file io.Reader, fileSize int64) (string, error)
	DeleteAvatar(ctx context.Context, userID string, objectKey string) error
	OpenAvatar(ctx context.Context, objectKey string) (*AvatarObject, error)
}

type AvatarObject struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ETag        string
}

type MinIOStorageService struct {
	client     *minio.Client
	bucketName string

	mu           sync.Mutex
	ready        bool
	ensureBucket func(context.Context) error
}

// NewMinIOStorageService builds the client without contacting the server;
// the bucket is created on first use.
func NewMinIOStorageService(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOStorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	s := &MinIOStorageService{client: client, bucketName: bucketName}
	s.ensureBucket = s.ensureBucketExists
	return s, nil
}

// Client exposes the underlying MinIO client for readiness probing.
func (s *MinIOStorageService) Client() *minio.Client { return s.client }

func (s *MinIOStorageService) Bucket() string { return s.bucketName }

// lazyInit makes sure the bucket exists. Only success is remembered, so a
// failed check runs again on the next call. The check ignores caller
// cancellation and is bounded by bucketInitTimeout instead.
func (s *MinIOStorageService) lazyInit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bucketInitTimeout)
	defer cancel()
	if err := s.ensureBucket(initCtx); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *MinIOStorageService) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}
	return nil
}

// UploadAvatar validates size and sniffed content type before touching
// storage, then writes the image under avatars/user-<id>/.
func (s *MinIOStorageService) UploadAvatar(ctx context.Context, userID string, file io.Reader, fileSize int64) (string, error) {
	if fileSize > MaxAvatarSize {
		return "", ErrFileTooBig
	}
	contentType, head, err := sniffImage(file)
	if err != nil {
		return "", err
	}
	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("%s/%s%s", avatarKeyPrefix(userID), uuid.NewString(), allowedContentTypes[contentType])
	_, err = s.client.PutObject(ctx, s.bucketName, objectKey, io.MultiReader(bytes.NewReader(head), file), fileSize, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"User-ID":     userID,
			"Uploaded-At": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return objectKey, nil
}

func (s *MinIOStorageService) DeleteAvatar(ctx context.Context, userID string, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return nil
	}
	if !ownsAvatarKey(userID, objectKey) {
		return ErrUnauthorizedAccess
	}
	if err := s.lazyInit(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}

// OpenAvatar streams a stored avatar. The caller closes Body.
func (s *MinIOStorageService) OpenAvatar(ctx context.Context, objectKey string) (*AvatarObject, error) {
	if !strings.HasPrefix(objectKey, avatarPathPrefix+"/") || strings.Contains(objectKey, "..") {
		return nil, ErrObjectNotFound
	}
	if err := s.lazyInit(ctx); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectError(err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, mapObjectError(err)
	}
	return &AvatarObject{Body: obj, ContentType: info.ContentType, Size: info.Size, ETag: info.ETag}, nil
}

func sniffImage(file io.Reader) (string, []byte, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("%w: read file for content detection: %v", ErrUploadFailed, err)
	}
	buf = buf[:n]
	contentType := strings.ToLower(strings.TrimSpace(http.DetectContentType(buf)))
	if _, ok := allowedContentTypes[contentType]; !ok {
		return "", nil, ErrInvalidFileType
	}
	return contentType, buf, nil
}

func avatarKeyPrefix(userID string) string {
	return fmt.Sprintf("%s/user-%s", avatarPathPrefix, userID)
}

func ownsAvatarKey(userID, objectKey string) bool {
	if strings.Contains(objectKey, "..") {
		return false
	}
	return strings.HasPrefix(objectKey, avatarKeyPrefix(userID)+"/")
}

func mapObjectError(err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket") {
		return ErrObjectNotFound
	}
	return err
}
