package s3

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *mockObjectStore) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *mockObjectStore) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, object, reader, size, opts)
	return minio.UploadInfo{}, args.Error(0)
}

func TestNewArchiveValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing endpoint", Config{AccessKey: "a", SecretKey: "b", Bucket: "c"}, "s3 endpoint is required"},
		{"missing keys", Config{Endpoint: "localhost:9000", Bucket: "c"}, "s3 access key and secret key are required"},
		{"missing bucket", Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: " "}, "s3 bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewArchive(tt.cfg)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestNewArchiveDefaultsRegion(t *testing.T) {
	a, err := NewArchive(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "killay-imports"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", a.region)
	assert.Equal(t, "killay-imports", a.bucket)
}

func TestStoreRequiresKey(t *testing.T) {
	a, err := NewArchive(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "killay-imports"})
	require.NoError(t, err)

	_, err = a.Store(context.Background(), " / ", []byte("x"))
	assert.EqualError(t, err, "object key is required")
}

func TestStoreRetriesBucketCheckAfterFailure(t *testing.T) {
	store := &mockObjectStore{}
	a := &Archive{client: store, bucket: "killay-imports", region: "us-east-1"}

	store.On("BucketExists", mock.Anything, "killay-imports").Return(false, context.Canceled).Once()
	store.On("BucketExists", mock.Anything, "killay-imports").Return(false, nil).Once()
	store.On("MakeBucket", mock.Anything, "killay-imports", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil).Once()
	store.On("PutObject", mock.Anything, "killay-imports", "imports/a.xlsx", mock.Anything, int64(1), mock.Anything).Return(nil).Twice()

	_, err := a.Store(context.Background(), "imports/a.xlsx", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	location, err := a.Store(context.Background(), "imports/a.xlsx", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "s3://killay-imports/imports/a.xlsx", location)

	// the bucket is only checked until a check succeeds
	_, err = a.Store(context.Background(), "imports/a.xlsx", []byte("x"))
	require.NoError(t, err)

	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "BucketExists", 2)
}
