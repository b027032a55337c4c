//go:build integration

package s3

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/config"
)

var testCfg config.MinIOConfig

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Printf("Docker unavailable, skipping integration tests: %s", err)
		os.Exit(0)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        "latest",
		Cmd:        []string{"server", "/data"},
		Env:        []string{"MINIO_ROOT_USER=propertyhub", "MINIO_ROOT_PASSWORD=propertyhub-secret"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MinIO resource: %s", err)
	}

	testCfg = config.MinIOConfig{
		Endpoint:  resource.GetHostPort("9000/tcp"),
		AccessKey: "propertyhub",
		SecretKey: "propertyhub-secret",
		Bucket:    "media-test",
	}
	if err := pool.Retry(func() error {
		resp, err := http.Get("http://" + testCfg.Endpoint + "/minio/health/live")
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}); err != nil {
		log.Fatalf("Could not reach MinIO: %s", err)
	}

	code := m.Run()
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge MinIO resource: %s", err)
	}
	os.Exit(code)
}

func TestS3Storage_Upload(t *testing.T) {
	ctx := context.Background()
	store, err := NewS3Storage(ctx, testCfg, zap.NewNop())
	require.NoError(t, err)

	// second construction finds the bucket already there
	_, err = NewS3Storage(ctx, testCfg, zap.NewNop())
	require.NoError(t, err)

	data := []byte("fake image bytes")
	url, err := store.Upload(ctx, "listings/1700000000000_a.jpg", "image/jpeg", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, "http://"+testCfg.Endpoint+"/media-test/listings/1700000000000_a.jpg", url)

	obj, err := store.client.GetObject(ctx, testCfg.Bucket, "listings/1700000000000_a.jpg", minio.GetObjectOptions{})
	require.NoError(t, err)
	defer obj.Close()
	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
