package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txanomaly/internal/config"
)

// memStore is an in-memory Store
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failOn  string
	closed  bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, contentType string) error {
	if key == m.failOn {
		return errors.New("upload refused")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func (m *memStore) keys() []string {
	var keys []string
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		raw     string
		want    URI
		wantErr bool
	}{
		{raw: "gs://bucket/reports/anomaly", want: URI{Scheme: "gs", Bucket: "bucket", Prefix: "reports/anomaly"}},
		{raw: "s3://bucket/", want: URI{Scheme: "s3", Bucket: "bucket"}},
		{raw: "s3://bucket", want: URI{Scheme: "s3", Bucket: "bucket"}},
		{raw: "gs://bucket//deep/prefix/", want: URI{Scheme: "gs", Bucket: "bucket", Prefix: "deep/prefix"}},
		{raw: "file:///tmp/x", wantErr: true},
		{raw: "bucket/prefix", wantErr: true},
		{raw: "gs:///prefix", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseURI(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURIJoin(t *testing.T) {
	u := URI{Scheme: "gs", Bucket: "b", Prefix: "reports"}
	assert.Equal(t, "reports/run-1/visuals/a.png", u.Key("run-1", "visuals/a.png"))
	assert.Equal(t, "gs://b/reports/run-1", u.Join("run-1").String())

	bare := URI{Scheme: "s3", Bucket: "b"}
	assert.Equal(t, "run-1/x.csv", bare.Key("run-1", "x.csv"))
	assert.Equal(t, "s3://b", bare.String())
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestPublish(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"transaction_row_anomalies.csv": "a,b\n",
		"summary.json":                  "{}",
		"visuals/distribution.png":      "png",
	})
	store := newMemStore()
	pub := NewPublisherWithStore(store, URI{Scheme: "gs", Bucket: "reports", Prefix: "anomaly"}, discardLogger())

	uri, err := pub.Publish(context.Background(), dir, "run-42")
	require.NoError(t, err)
	assert.Equal(t, "gs://reports/anomaly/run-42", uri)

	assert.Equal(t, []string{
		"anomaly/run-42/summary.json",
		"anomaly/run-42/transaction_row_anomalies.csv",
		"anomaly/run-42/visuals/distribution.png",
	}, store.keys())
	assert.Equal(t, "a,b\n", string(store.objects["anomaly/run-42/transaction_row_anomalies.csv"]))
	assert.Equal(t, "image/png", store.types["anomaly/run-42/visuals/distribution.png"])

	require.NoError(t, pub.Close())
	assert.True(t, store.closed)
}

func TestPublishFailure(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.csv": "1", "b.csv": "2"})
	store := newMemStore()
	store.failOn = "run/a.csv"
	pub := NewPublisherWithStore(store, URI{Scheme: "s3", Bucket: "b"}, discardLogger())

	_, err := pub.Publish(context.Background(), dir, "run")
	assert.ErrorContains(t, err, "upload refused")
}

func TestPublishCancelled(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.csv": "1"})
	pub := NewPublisherWithStore(newMemStore(), URI{Scheme: "s3", Bucket: "b"}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pub.Publish(ctx, dir, "run")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishUploadRate(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.csv": "1", "b.csv": "2"})

	fast := NewPublisherWithStore(newMemStore(), URI{Scheme: "gs", Bucket: "b"}, discardLogger()).WithUploadRate(1000)
	_, err := fast.Publish(context.Background(), dir, "run")
	require.NoError(t, err)

	slow := NewPublisherWithStore(newMemStore(), URI{Scheme: "gs", Bucket: "b"}, discardLogger()).WithUploadRate(0.001)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = slow.Publish(ctx, dir, "run")
	assert.Error(t, err, "the second upload cannot start before the deadline")

	unlimited := slow.WithUploadRate(0)
	_, err = unlimited.Publish(context.Background(), dir, "run")
	assert.NoError(t, err)
}

func TestNewPublisherDisabled(t *testing.T) {
	pub, err := NewPublisher(context.Background(), config.StorageConfig{}, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, pub)

	_, err = NewPublisher(context.Background(), config.StorageConfig{PublishURI: "ftp://x"}, discardLogger())
	assert.Error(t, err)
}

func TestFetchFrom(t *testing.T) {
	store := newMemStore()
	store.objects["in/transactions.csv"] = []byte("transaction_id\n1\n")

	dst := filepath.Join(t.TempDir(), "data", "cleaned_transactions.csv")
	require.NoError(t, FetchFrom(context.Background(), store, "in/transactions.csv", dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "transaction_id\n1\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary download file left behind")

	err = FetchFrom(context.Background(), store, "in/absent.csv", dst)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFetchRequiresObjectPath(t *testing.T) {
	err := Fetch(context.Background(), "gs://bucket", filepath.Join(t.TempDir(), "x"), config.StorageConfig{})
	assert.ErrorContains(t, err, "no object path")
}
