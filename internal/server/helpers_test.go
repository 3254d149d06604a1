package server

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/clean-dependency-project/devserve/internal/config"
)

// site is an on-disk fixture: root holds the served tree, outside is a
// sibling directory that must never be reachable.
type site struct {
	root     string
	outside  string
	symlinks bool
}

func newSite(t *testing.T) *site {
	t.Helper()
	base := t.TempDir()
	s := &site{
		root:    filepath.Join(base, "public"),
		outside: filepath.Join(base, "outside"),
	}

	files := map[string]string{
		"public/index.html":      "<h1>home</h1>",
		"public/blog/index.html": "<h1>blog</h1>",
		"public/image.svg":       "<svg></svg>",
		"public/archive.wasm":    "\x00asm",
		"public/notes.txt":       "notes",
		"public/UPPER.HTML":      "<p>upper</p>",
		"public/data/items.json": `[{"title":"one"}]`,
		"outside/secret.txt":     "secret",
	}
	for name, body := range files {
		path := filepath.Join(base, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(s.root, "empty"), 0755); err != nil {
		t.Fatalf("failed to create empty dir: %v", err)
	}

	links := map[string]string{
		"escape":    s.outside,
		"leak.txt":  filepath.Join(s.outside, "secret.txt"),
		"inner.txt": filepath.Join(s.root, "blog", "index.html"),
		"dangling":  filepath.Join(s.outside, "missing.txt"),
	}
	s.symlinks = true
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(s.root, name)); err != nil {
			s.symlinks = false
			break
		}
	}
	return s
}

func (s *site) config(t *testing.T, chunkSize config.ByteSize) config.ServerConfig {
	t.Helper()
	opts := config.DefaultOptions()
	opts.Root = s.root
	opts.Host = "127.0.0.1"
	opts.Port = 0
	if chunkSize != 0 {
		opts.ChunkSize = chunkSize
	}
	cfg, err := config.New(opts)
	if err != nil {
		t.Fatalf("config.New() unexpected error: %v", err)
	}
	return cfg
}

// testLogger captures JSON log records.
func testLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// trackedFile wraps a reader and records how it was used.
type trackedFile struct {
	mu       sync.Mutex
	r        io.Reader
	closer   io.Closer
	reads    int
	maxRead  int
	closed   bool
	failAt   int // fail the read with this 1-based index; 0 never fails
	failWith error
}

func (f *trackedFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if len(p) > f.maxRead {
		f.maxRead = len(p)
	}
	if f.failAt != 0 && f.reads >= f.failAt {
		return 0, f.failWith
	}
	return f.r.Read(p)
}

func (f *trackedFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// largestRead is safe to call while a handler goroutine is still reading.
func (f *trackedFile) largestRead() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxRead
}

// opener records every file opened through it.
type opener struct {
	mu     sync.Mutex
	opened []string
	files  []*trackedFile
	failAt int
	err    error
}

func (o *opener) open(name string) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, name)
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	tf := &trackedFile{r: f, closer: f, failAt: o.failAt, failWith: o.err}
	o.files = append(o.files, tf)
	return tf, nil
}

func (o *opener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}
