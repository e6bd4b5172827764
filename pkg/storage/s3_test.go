package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data)), ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	page := &s3.ListObjectsV2Output{}
	for key, data := range f.objects {
		page.Contents = append(page.Contents, &s3.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(data))),
			LastModified: aws.Time(time.Now()),
		})
	}
	fn(page, true)
	return nil
}

func TestS3StoragePrefixesKeys(t *testing.T) {
	client := newFakeS3()
	store := NewS3StorageWithClient(client, "bucket", "/portfolios/")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "file_1.pdf", bytes.NewReader([]byte("pdf")), 3, "application/pdf"))
	assert.Contains(t, client.objects, "portfolios/file_1.pdf")

	rc, size, err := store.Get(ctx, "file_1.pdf")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(3), size)

	blobs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, "file_1.pdf", blobs[0].Name)
}

func TestS3StorageMissingObject(t *testing.T) {
	store := NewS3StorageWithClient(newFakeS3(), "bucket", "")

	_, _, err := store.Get(context.Background(), "nope.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(context.Background(), "nope.pdf"))
}
