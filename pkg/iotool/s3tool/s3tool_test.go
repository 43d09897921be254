package s3tool

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-topology/pkg/iotool"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	fail    error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = body
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestStoreRequestDrop(t *testing.T) {
	fake := newFakeS3()
	tool := New(fake, "topologies", "lab/")
	ctx := context.Background()

	resp, err := tool.Store(ctx, "t1", []byte("<a> <b> <c> ."))
	require.NoError(t, err)
	assert.Equal(t, iotool.CodeOK, resp.Code)
	assert.Contains(t, fake.objects, "lab/t1.nt")
	assert.Equal(t, contentType, fake.types["lab/t1.nt"])

	resp, err = tool.Request(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "<a> <b> <c> .", resp.Data["t1"])

	resp, err = tool.Drop(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, iotool.CodeOK, resp.Code)
	assert.Empty(t, fake.objects)
}

func TestMissingObject(t *testing.T) {
	tool := New(newFakeS3(), "b", "")

	resp, err := tool.Request(context.Background(), "none")
	require.NoError(t, err)
	assert.Equal(t, iotool.CodeNotFound, resp.Code)

	resp, err = tool.Drop(context.Background(), "none")
	require.NoError(t, err)
	assert.Equal(t, iotool.CodeNotFound, resp.Code)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		fail     error
		wantCode int
		wantErr  bool
	}{
		{"service error", &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}, iotool.CodeInternal, false},
		{"transport error", errors.New("dial tcp: connection refused"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeS3()
			fake.fail = tt.fail
			resp, err := New(fake, "b", "").Request(context.Background(), "x")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Contains(t, resp.Message, "AccessDenied")
		})
	}
}

func TestOpen_RequiresBucket(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.Error(t, err)
}
