package storage

import (
	"context"
	"io"
)

type ObjectStore interface {
	CreateBucket(ctx context.Context, bucket string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	DeleteObjects(ctx context.Context, bucket, prefix string) error
}
