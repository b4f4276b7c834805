package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

type fakeS3 struct {
	objects map[string][]byte
	gets    int
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	var start int
	if _, err := fmt.Sscanf(aws.ToString(in.Range), "bytes=%d-", &start); err != nil {
		return nil, err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data[start:]))}, nil
}

func TestS3_OpenSeekRead(t *testing.T) {
	ctx := context.Background()
	api := &fakeS3{objects: map[string][]byte{"packs/data.bin": []byte("0123456789")}}
	store := NewS3(api, "bucket", "packs")

	s, err := store.Open(ctx, "data.bin")
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, 3)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, "012", string(buf))

	pos, err := s.Seek(7, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)

	rest, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "789", string(rest))
	assert.Equal(t, 2, api.gets)

	pos, err = s.Seek(-4, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	_, err = s.Seek(-1, io.SeekStart)
	require.ErrorIs(t, err, core.ErrIO)
}

func TestS3_NotFound(t *testing.T) {
	store := NewS3(&fakeS3{objects: map[string][]byte{}}, "bucket", "")
	_, err := store.Open(context.Background(), "missing.bin")
	require.ErrorIs(t, err, core.ErrIO)
	assert.Contains(t, err.Error(), "file not found")
}
