package confloader

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)

	w.StartAsync()
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	require.Error(t, w.Watch("/nonexistent/dir/config.yaml"))
}

func TestWatcher_FileChange(t *testing.T) {
	configFile := writeFile(t, "config.yaml", "log:\n  level: info\n")

	w, err := NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Watch(configFile))

	changed := make(chan string, 10)
	w.OnChange(func(path string) {
		select {
		case changed <- path:
		default:
		}
	})

	w.StartAsync()
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0644))

	select {
	case path := <-changed:
		abs, _ := filepath.Abs(configFile)
		got, _ := filepath.Abs(path)
		require.Equal(t, abs, got)
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange() callback was not triggered within timeout")
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	configFile := writeFile(t, "config.yaml", "log:\n  level: info\n")

	w, err := NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Watch(configFile))

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })

	w.StartAsync()
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	sibling := filepath.Join(filepath.Dir(configFile), "other.yaml")
	require.NoError(t, os.WriteFile(sibling, []byte("x: 1"), 0644))
	time.Sleep(300 * time.Millisecond)

	require.Equal(t, int32(0), calls.Load())
}

func TestWatcher_NotifyCallbacks(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		w.OnChange(func(string) { calls.Add(1) })
	}
	w.notifyCallbacks("/etc/tuamail/config.yaml")

	require.Equal(t, int32(3), calls.Load())
}
