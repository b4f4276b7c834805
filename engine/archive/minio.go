package archive

import (
	"context"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// MinIO serves files from a MinIO or other S3-compatible bucket.
// Objects are read with ranged GETs; minio.Object already seeks.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOClient builds a client with static credentials.
func NewMinIOClient(endpoint, accessKey, secretKey string, secure bool) (*minio.Client, error) {
	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, core.Wrap(core.KindIO, "archive.NewMinIOClient", err).WithPath(endpoint)
	}
	return c, nil
}

// NewMinIO creates an archive over bucket. prefix is prepended to every name.
func NewMinIO(client *minio.Client, bucket, prefix string) *MinIO {
	return &MinIO{client: client, bucket: bucket, prefix: prefix}
}

func (m *MinIO) key(name string) string {
	return path.Join(m.prefix, name)
}

func (m *MinIO) Open(ctx context.Context, name string) (Stream, error) {
	key := m.key(name)

	// GetObject is lazy, so stat first to surface missing keys at open time.
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
			return nil, core.Errorf(core.KindIO, "archive.MinIO", "file not found").WithPath(key)
		}
		return nil, core.Wrap(core.KindIO, "archive.MinIO", err).WithPath(key)
	}

	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, core.Wrap(core.KindIO, "archive.MinIO", err).WithPath(key)
	}
	return obj, nil
}
