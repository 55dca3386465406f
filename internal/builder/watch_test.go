package builder

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/dashgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	root := t.TempDir()
	templates := filepath.Join(root, "templates")
	config := filepath.Join(root, "config.yml")
	files := map[string]bool{config: true}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"template write", fsnotify.Event{Name: filepath.Join(templates, "02_panels", "cpu.yml.j2"), Op: fsnotify.Write}, true},
		{"new category", fsnotify.Event{Name: filepath.Join(templates, "05_alerts"), Op: fsnotify.Create}, true},
		{"template removed", fsnotify.Event{Name: filepath.Join(templates, "a.yml.j2"), Op: fsnotify.Remove}, true},
		{"config write", fsnotify.Event{Name: config, Op: fsnotify.Write}, true},
		{"sibling of config", fsnotify.Event{Name: filepath.Join(root, "other.yml"), Op: fsnotify.Write}, false},
		{"chmod only", fsnotify.Event{Name: filepath.Join(templates, "a.yml.j2"), Op: fsnotify.Chmod}, false},
		{"prefix lookalike", fsnotify.Event{Name: templates + "-old/a.yml.j2", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event, templates, files))
		})
	}
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	templates := filepath.Join(root, "templates")
	testutil.WriteFiles(t, templates, map[string]string{
		"02_panels/cpu.yml.j2": "title: cpu\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rebuilds atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, WatchOptions{
			TemplatesDir: templates,
			Debounce:     10 * time.Millisecond,
			Logger:       testutil.NewTestLogger(t),
		}, func(context.Context) error {
			rebuilds.Add(1)
			return nil
		})
	}()

	// The watcher starts asynchronously, so keep touching the file until a
	// rebuild is observed.
	target := filepath.Join(templates, "02_panels", "cpu.yml.j2")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(target, []byte("title: cpu2\n"), 0600)
		return rebuilds.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := Watch(context.Background(), WatchOptions{
		TemplatesDir: filepath.Join(t.TempDir(), "missing"),
	}, func(context.Context) error { return nil })
	assert.Error(t, err)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// A failing rebuild is reported by the callback only, and watching goes on.
func TestWatch_RebuildErrorKeepsWatching(t *testing.T) {
	root := t.TempDir()
	templates := filepath.Join(root, "templates")
	testutil.WriteFiles(t, templates, map[string]string{
		"02_panels/cpu.yml.j2": "title: cpu\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logs := &lockedBuffer{}
	var rebuilds atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, WatchOptions{
			TemplatesDir: templates,
			Debounce:     10 * time.Millisecond,
			Logger:       slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelInfo})),
		}, func(context.Context) error {
			rebuilds.Add(1)
			return errors.New("broken template")
		})
	}()

	target := filepath.Join(templates, "02_panels", "cpu.yml.j2")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(target, []byte("title: cpu2\n"), 0600)
		return rebuilds.Load() > 1
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.NotContains(t, logs.String(), "rebuild failed")
	assert.NotContains(t, logs.String(), "level=ERROR")
}
