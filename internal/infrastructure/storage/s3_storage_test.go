package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/pharmanet/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func testConfig() config.StorageConfig {
	return config.StorageConfig{
		Bucket:       "delivery-notes",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

func TestNewS3DocumentStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.StorageConfig)
		wantErr string
	}{
		{"missing bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.StorageConfig) { c.AccessKey = "" }, "access key"},
		{"missing secret key", func(c *config.StorageConfig) { c.SecretKey = "" }, "secret key"},
		{"bad endpoint", func(c *config.StorageConfig) { c.Endpoint = "http://" }, "invalid storage endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewS3DocumentStorage(context.Background(), cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewS3DocumentStorage_Defaults(t *testing.T) {
	s, err := NewS3DocumentStorage(context.Background(), testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "delivery-notes", s.Bucket())
	assert.Equal(t, 15*time.Minute, s.presignExpiration)
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"", false, ""},
		{"localhost:9000", false, "http://localhost:9000"},
		{"minio.internal:9000", true, "https://minio.internal:9000"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.in, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3DocumentStorage_PresignGet(t *testing.T) {
	s, err := NewS3DocumentStorage(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.PresignGet(ctx, "", time.Minute)
	assert.ErrorIs(t, err, ErrKeyRequired)

	link, err := s.PresignGet(ctx, "delivery-notes/seller/order-v3.pdf", 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Contains(t, u.Path, "/delivery-notes/delivery-notes/seller/order-v3.pdf")
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))

	link, err = s.PresignGet(ctx, "k.pdf", 0)
	require.NoError(t, err)
	u, err = url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
}

func TestS3DocumentStorage_EmptyKey(t *testing.T) {
	s, err := NewS3DocumentStorage(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.Put(ctx, "", "application/pdf", []byte("x")), ErrKeyRequired)
	assert.ErrorIs(t, s.Delete(ctx, ""), ErrKeyRequired)
	_, err = s.Exists(ctx, "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}

// startMinIO runs a throwaway MinIO server
func startMinIO(t *testing.T) config.StorageConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MinIO container in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:RELEASE.2024-11-07T00-52-20Z",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "pharmanet",
				"MINIO_ROOT_PASSWORD": "pharmanet-secret",
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	return config.StorageConfig{
		Endpoint:     fmt.Sprintf("%s:%s", host, port.Port()),
		Bucket:       "pharmanet-documents",
		AccessKey:    "pharmanet",
		SecretKey:    "pharmanet-secret",
		UsePathStyle: true,
	}
}

func TestIntegration_PutAndPresignedDownload(t *testing.T) {
	cfg := startMinIO(t)
	ctx := context.Background()

	s, err := NewS3DocumentStorage(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.EnsureBucket(ctx))
	// Idempotent
	require.NoError(t, s.EnsureBucket(ctx))

	key := "delivery-notes/seller/order-v1.pdf"
	body := []byte("%PDF-1.4 fake")
	require.NoError(t, s.Put(ctx, key, "application/pdf", body))

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	link, err := s.PresignGet(ctx, key, time.Minute)
	require.NoError(t, err)
	resp, err := http.Get(link)
	require.NoError(t, err)
	defer resp.Body.Close()
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, body, got)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	require.NoError(t, s.Delete(ctx, key))
	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
