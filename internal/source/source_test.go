package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestParse(t *testing.T) {
	abs, err := filepath.Abs("data/sales.csv")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		input    string
		expected Location
		wantErr  bool
	}{
		{name: "relative path", input: "data/sales.csv", expected: Location{Scheme: "file", Path: abs}},
		{name: "file uri", input: "file://" + abs, expected: Location{Scheme: "file", Path: abs}},
		{name: "s3 uri", input: "s3://bucket/raw/FMCG.csv", expected: Location{Scheme: "s3", Bucket: "bucket", Key: "raw/FMCG.csv"}},
		{name: "s3 without key", input: "s3://bucket", wantErr: true},
		{name: "s3 without bucket", input: "s3:///key.csv", wantErr: true},
		{name: "empty", input: "  ", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCanonical(t *testing.T) {
	abs, err := filepath.Abs("sales.csv")
	require.NoError(t, err)

	assert.Equal(t, abs, Canonical("./sales.csv"))
	assert.Equal(t, abs, Canonical("file://"+abs))
	assert.Equal(t, "s3://b/k.csv", Canonical("s3://b/k.csv"))
	assert.Equal(t, "s3://b", Canonical("s3://b"))
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("date\n"), 0o600))

	rc, err := NewOpener(S3Config{}).Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "date\n", string(b))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := NewOpener(S3Config{}).Open(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenS3(t *testing.T) {
	fake := &fakeS3{body: "date,sku\n"}
	rc, err := NewOpenerWithClient(fake).Open(context.Background(), "s3://sales-bucket/2024/fmcg.csv")
	require.NoError(t, err)
	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "date,sku\n", string(b))
	assert.Equal(t, "sales-bucket", fake.bucket)
	assert.Equal(t, "2024/fmcg.csv", fake.key)
}

func TestOpenS3Error(t *testing.T) {
	denied := errors.New("access denied")
	_, err := NewOpenerWithClient(&fakeS3{err: denied}).Open(context.Background(), "s3://b/k.csv")
	assert.ErrorIs(t, err, denied)
	assert.Contains(t, err.Error(), "s3://b/k.csv")
}
