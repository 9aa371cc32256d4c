package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	keys []string
	err  error
}

func (f *fakeDeleter) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.keys = append(f.keys, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, f.err
}

func TestLocal_Delete(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "projects"), 0o755))
	file := filepath.Join(dir, "projects", "brief.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	st := NewLocal(dir, "/files/")
	require.NoError(t, st.Delete(context.Background(), "/files/projects/brief.pdf"))

	_, err := os.Stat(file)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// Second delete of the same file is a no-op.
	assert.NoError(t, st.Delete(context.Background(), "/files/projects/brief.pdf"))
}

func TestLocal_RejectsForeignAndTraversal(t *testing.T) {
	st := NewLocal(t.TempDir(), "/files")
	assert.ErrorIs(t, st.Delete(context.Background(), "https://elsewhere/brief.pdf"), ErrForeignURL)

	outside := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	_ = st.Delete(context.Background(), "/files/../../"+filepath.Base(outside))
	_, err := os.Stat(outside)
	assert.NoError(t, err, "traversal must stay inside the store root")
}

func TestS3_DeleteMapsURLToKey(t *testing.T) {
	fd := &fakeDeleter{}
	st := newS3(fd, Config{S3Bucket: "uploads", S3Prefix: "projects/", S3BaseURL: "https://cdn.example.com/"})

	require.NoError(t, st.Delete(context.Background(), "https://cdn.example.com/projects/p1/brief.pdf"))
	assert.Equal(t, []string{"projects/p1/brief.pdf"}, fd.keys)

	err := st.Delete(context.Background(), "https://cdn.example.com/avatars/a.png")
	assert.ErrorIs(t, err, ErrForeignURL)
	assert.Len(t, fd.keys, 1)
}

func TestS3_EndpointBaseURL(t *testing.T) {
	st := newS3(&fakeDeleter{}, Config{S3Bucket: "b", S3Endpoint: "http://minio:9000/"})
	key, err := st.Key("http://minio:9000/b/x/y.txt")
	require.NoError(t, err)
	assert.Equal(t, "x/y.txt", key)
}

func TestS3_DeleteError(t *testing.T) {
	fd := &fakeDeleter{err: errors.New("access denied")}
	st := newS3(fd, Config{S3Bucket: "b"})
	assert.Error(t, st.Delete(context.Background(), "k"))
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "ftp"})
	assert.Error(t, err)
}
