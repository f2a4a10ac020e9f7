package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlink/adapter-sdk/internal/testutil"
)

func TestLoadAppliesDefaultsAndYAML(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	data := []byte(`
service:
  name: test-adapter
  port: 9000
clients:
  data:
    host: data-svc
    port: 8080
  metadata:
    host: meta-svc
    port: 8081
device:
  profilesDir: ./res
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "test-adapter", cfg.Service.Name)
	assert.Equal(t, 9000, cfg.Service.Port)
	assert.Equal(t, "0.0.0.0", cfg.Service.Host) // default preserved
	assert.Equal(t, 3, cfg.Service.ConnectRetries)
	assert.True(t, cfg.Device.DataTransform)
	assert.Equal(t, "data-svc", cfg.Clients.Data.Host)
}

func TestLoadEnvOverride(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	override := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(override, []byte("service:\n  name: from-override\n"), 0644))

	testutil.SetEnv(t, EnvOverride, override)
	defer testutil.RemoveEnv(t, EnvOverride)

	cfg, err := Load("/nonexistent/search/path")
	require.NoError(t, err)
	assert.Equal(t, "from-override", cfg.Service.Name)
}

func TestLoadNoConfigFound(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	sc := ServiceConfig{CheckInterval: "15s", Timeout: 2500}
	assert.Equal(t, 15*1e9, float64(sc.CheckIntervalDuration()))
	assert.Equal(t, int64(2500*1e6), sc.TimeoutDuration().Nanoseconds())

	bad := ServiceConfig{CheckInterval: "not-a-duration"}
	assert.Equal(t, 30*1e9, float64(bad.CheckIntervalDuration()))
}
