package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server struct {
		HTTP struct {
			Addr string `koanf:"addr"`
		} `koanf:"http"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"server"`
	Storage struct {
		DataDir      string `koanf:"data_dir"`
		SnapshotKeep int    `koanf:"snapshot_keep"`
	} `koanf:"storage"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func defaults() *testConfig {
	cfg := &testConfig{}
	cfg.Server.HTTP.Addr = "127.0.0.1:5090"
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Storage.DataDir = "/var/lib/tuamail"
	cfg.Storage.SnapshotKeep = 5
	cfg.Log.Level = "info"
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	require.Equal(t, DefaultEnvPrefix, l.envPrefix)

	l = NewLoader(WithConfigFile("/etc/x.yaml"), WithDotEnvFile("/etc/.env"))
	require.Equal(t, "/etc/x.yaml", l.filePath)
	require.Equal(t, "/etc/.env", l.dotEnvPath)
}

func TestLoader_DefaultsOnly(t *testing.T) {
	cfg := defaults()
	l := NewLoader()
	l.envPrefix = "TUAMAIL_TEST_NONE_"
	require.NoError(t, l.Load(cfg))
	require.Equal(t, defaults(), cfg)
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  http:
    addr: "0.0.0.0:8080"
  shutdown_timeout: 5s
storage:
  snapshot_keep: 2
`)

	cfg := defaults()
	l := NewLoader(WithConfigFile(path))
	require.NoError(t, l.Load(cfg))

	require.Equal(t, "0.0.0.0:8080", cfg.Server.HTTP.Addr)
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, 2, cfg.Storage.SnapshotKeep)
	// Untouched keys keep their defaults.
	require.Equal(t, "/var/lib/tuamail", cfg.Storage.DataDir)
	require.Equal(t, "0.0.0.0:8080", l.k.String("server.http.addr"))
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	err := NewLoader(WithConfigFile("/nonexistent/config.yaml")).Load(defaults())
	require.Error(t, err)
}

func TestLoader_EnvNesting(t *testing.T) {
	t.Setenv("TUAMAIL_STORAGE__DATA_DIR", "/srv/tuamail")
	t.Setenv("TUAMAIL_LOG__LEVEL", "debug")

	cfg := defaults()
	require.NoError(t, NewLoader().Load(cfg))
	require.Equal(t, "/srv/tuamail", cfg.Storage.DataDir)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_DotEnv(t *testing.T) {
	path := writeFile(t, ".env", `
# comment
TUAMAIL_STORAGE__SNAPSHOT_KEEP=9
TUAMAIL_SERVER__HTTP__ADDR=10.0.0.1:9000
UNRELATED=ignored
`)

	cfg := defaults()
	l := NewLoader(WithDotEnvFile(path))
	require.NoError(t, l.Load(cfg))
	require.Equal(t, 9, cfg.Storage.SnapshotKeep)
	require.Equal(t, "10.0.0.1:9000", cfg.Server.HTTP.Addr)
	require.Nil(t, l.k.Get("unrelated"))
}

func TestLoader_DotEnvMissing(t *testing.T) {
	cfg := defaults()
	require.NoError(t, NewLoader(WithDotEnvFile(filepath.Join(t.TempDir(), ".env"))).Load(cfg))
	require.Equal(t, defaults(), cfg)
}

func TestLoader_Priority(t *testing.T) {
	file := writeFile(t, "config.yaml", `
server:
  http:
    addr: "from-file:1"
log:
  level: warn
storage:
  data_dir: /from/file
`)
	dotenv := writeFile(t, ".env", "TUAMAIL_SERVER__HTTP__ADDR=from-dotenv:2\nTUAMAIL_LOG__LEVEL=error\n")
	t.Setenv("TUAMAIL_SERVER__HTTP__ADDR", "from-env:3")

	cfg := defaults()
	require.NoError(t, NewLoader(WithConfigFile(file), WithDotEnvFile(dotenv)).Load(cfg))

	require.Equal(t, "from-env:3", cfg.Server.HTTP.Addr)
	require.Equal(t, "error", cfg.Log.Level)
	require.Equal(t, "/from/file", cfg.Storage.DataDir)
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadMap(map[string]any{
		"log": map[string]any{"level": "warn"},
	}))

	cfg := defaults()
	require.NoError(t, l.Unmarshal(cfg))
	require.Equal(t, "warn", cfg.Log.Level)
	require.Contains(t, l.k.Keys(), "log.level")
}

func TestEnvKey(t *testing.T) {
	l := NewLoader()
	require.Equal(t, "storage.data_dir", l.envKey("TUAMAIL_STORAGE__DATA_DIR"))
	require.Equal(t, "server.rate_limit.rps", l.envKey("TUAMAIL_SERVER__RATE_LIMIT__RPS"))
	require.Equal(t, "metrics.enabled", l.envKey("TUAMAIL_METRICS__ENABLED"))
}

func TestNested_RequiresRead(t *testing.T) {
	_, err := nested{}.ReadBytes()
	require.ErrorIs(t, err, errNoBytes)

	m, err := nested{"a": 1}.Read()
	require.NoError(t, err)
	require.Equal(t, 1, m["a"])
}

func TestLoader_ErrorNamesSource(t *testing.T) {
	err := NewLoader(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))).Load(defaults())
	require.ErrorContains(t, err, "config file")
}
