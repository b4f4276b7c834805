package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// S3API is the subset of *s3.Client the archive uses.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 serves files from an S3 bucket.
type S3 struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Client loads the default AWS configuration. A non-empty endpoint
// switches to path-style addressing for S3-compatible services.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, core.Wrap(core.KindIO, "archive.NewS3Client", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3(client S3API, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *S3) Open(ctx context.Context, name string) (Stream, error) {
	key := s.key(name)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		var nsk *types.NoSuchKey
		if errors.As(err, &nf) || errors.As(err, &nsk) {
			return nil, core.Errorf(core.KindIO, "archive.S3", "file not found").WithPath(key)
		}
		return nil, core.Wrap(core.KindIO, "archive.S3", err).WithPath(key)
	}

	return &s3Stream{
		ctx:    ctx,
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// s3Stream reads an object through ranged GETs. A body stays open while
// reads are sequential; seeking drops it and the next read starts a new range.
type s3Stream struct {
	ctx    context.Context
	client S3API
	bucket string
	key    string
	size   int64
	off    int64
	body   io.ReadCloser
}

func (s *s3Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.off >= s.size {
		return 0, io.EOF
	}
	if s.body == nil {
		out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-", s.off)),
		})
		if err != nil {
			return 0, core.Wrap(core.KindIO, "archive.S3", err).WithPath(s.key)
		}
		s.body = out.Body
	}
	n, err := s.body.Read(p)
	s.off += int64(n)
	if errors.Is(err, io.EOF) && s.off < s.size {
		// Range ended early; let the next read reopen at the new offset.
		_ = s.body.Close()
		s.body = nil
		err = nil
	}
	return n, err
}

func (s *s3Stream) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = s.off + offset
	case io.SeekEnd:
		next = s.size + offset
	default:
		return 0, core.Errorf(core.KindIO, "archive.S3", "invalid whence %d", whence).WithPath(s.key)
	}
	if next < 0 {
		return 0, core.Errorf(core.KindIO, "archive.S3", "negative seek position %d", next).WithPath(s.key)
	}
	if next != s.off && s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
	s.off = next
	return next, nil
}

func (s *s3Stream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}
