package filesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vertextoedge/image-loader/internal/domain"
)

func TestNewManager_CreatesRestrictedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "images")

	m, err := NewManager(dir, Options{})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if m.RootDir() != dir {
		t.Errorf("RootDir() = %q, want %q", m.RootDir(), dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("destination is not a directory")
	}
	if got := info.Mode().Perm(); got != DefaultDirMode {
		t.Errorf("mode = %o, want %o", got, DefaultDirMode)
	}
}

func TestNewManager_ExistingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := NewManager(dir, Options{}); err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	info, _ := os.Stat(dir)
	if got := info.Mode().Perm(); got != 0o755 {
		t.Errorf("existing dir mode changed to %o", got)
	}
}

func TestNewManager_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewManager(path, Options{})
	if !domain.IsConfigError(err) {
		t.Fatalf("NewManager() error = %v, want ConfigError", err)
	}
	if !errors.Is(err, domain.ErrNotDirectory) {
		t.Errorf("NewManager() error = %v, want ErrNotDirectory", err)
	}
}

func TestNewManager_NotWritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}

	dir := t.TempDir()
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o700) })

	_, err := NewManager(dir, Options{})
	if !errors.Is(err, domain.ErrNotWritable) {
		t.Fatalf("NewManager() error = %v, want ErrNotWritable", err)
	}
}

func TestNewManager_EmptyPath(t *testing.T) {
	_, err := NewManager("  ", Options{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("NewManager() error = %v, want ErrInvalidInput", err)
	}
}

func TestManager_WriteLocked(t *testing.T) {
	m, err := NewManager(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(m.RootDir(), "foo.png")

	n, err := m.WriteLocked(path, strings.NewReader("first version, longer"))
	if err != nil {
		t.Fatalf("WriteLocked() error = %v", err)
	}
	if n != int64(len("first version, longer")) {
		t.Errorf("written = %d", n)
	}

	// A shorter body must not leave a tail of the previous content
	if _, err := m.WriteLocked(path, strings.NewReader("second")); err != nil {
		t.Fatalf("WriteLocked() error = %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}

	info, _ := os.Stat(path)
	if info.Mode().Perm() != DefaultFileMode {
		t.Errorf("file mode = %o, want %o", info.Mode().Perm(), DefaultFileMode)
	}
}

func TestManager_WriteLocked_LockConflict(t *testing.T) {
	m, err := NewManager(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(m.RootDir(), "foo.png")
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	holder, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := lockExclusive(holder); err != nil {
		t.Fatalf("lockExclusive() error = %v", err)
	}

	_, err = m.WriteLocked(path, strings.NewReader("new"))
	if !errors.Is(err, domain.ErrLockConflict) {
		t.Fatalf("WriteLocked() error = %v, want ErrLockConflict", err)
	}
	if !domain.IsSkippable(err) {
		t.Error("lock conflict should be skippable")
	}

	got, _ := os.ReadFile(path)
	if string(got) != "existing" {
		t.Errorf("content = %q, existing file was disturbed", got)
	}

	// Closing the holder releases the lock
	holder.Close()
	if _, err := m.WriteLocked(path, strings.NewReader("new")); err != nil {
		t.Fatalf("WriteLocked() after release error = %v", err)
	}
}

func TestManager_WriteLocked_ConcurrentWriters(t *testing.T) {
	m, err := NewManager(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(m.RootDir(), "same.png")
	body := strings.Repeat("A", 1<<20)

	// Both writers start while the first one blocks mid-copy
	started := make(chan struct{})
	release := make(chan struct{})
	slow := &gatedReader{r: strings.NewReader(body), started: started, release: release}

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = m.WriteLocked(path, slow)
	}()

	<-started
	_, fastErr := m.WriteLocked(path, strings.NewReader("B"))
	close(release)
	wg.Wait()

	if slowErr != nil {
		t.Fatalf("first writer error = %v", slowErr)
	}
	if !errors.Is(fastErr, domain.ErrLockConflict) {
		t.Fatalf("second writer error = %v, want ErrLockConflict", fastErr)
	}

	got, _ := os.ReadFile(path)
	if string(got) != body {
		t.Errorf("content length = %d, want %d intact bytes", len(got), len(body))
	}
}

func TestManager_WriteLocked_ReadError(t *testing.T) {
	m, err := NewManager(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	readErr := errors.New("connection reset")
	target := filepath.Join(m.RootDir(), "x.png")
	if err := os.WriteFile(target, []byte("previous complete image"), 0o640); err != nil {
		t.Fatal(err)
	}

	r := io.MultiReader(strings.NewReader("PART"), &failingReader{err: readErr})
	_, err = m.WriteLocked(target, r)
	if !errors.Is(err, readErr) {
		t.Fatalf("WriteLocked() error = %v, want %v", err, readErr)
	}
	if domain.IsSkippable(err) {
		t.Error("copy errors must not be skippable")
	}

	// The partial file is discarded so its mtime cannot pass as fresh
	if data, err := os.ReadFile(target); err == nil && len(data) != 0 {
		t.Errorf("partial content left behind: %q", data)
	}
	if got := m.StalenessToken(target); got != EpochZeroToken {
		t.Errorf("StalenessToken() = %q, want %q", got, EpochZeroToken)
	}
}

func TestMarkStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(path, []byte("x"), 0o640); err != nil {
		t.Fatal(err)
	}

	markStale(path)

	if got := StalenessToken(path); got != EpochZeroToken {
		t.Errorf("StalenessToken() = %q, want %q", got, EpochZeroToken)
	}
}

func TestManager_TargetFor(t *testing.T) {
	m, err := NewManager(t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.TargetFor("http://h/imgs/foo.png")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(m.RootDir(), "foo.png"); got != want {
		t.Errorf("TargetFor() = %q, want %q", got, want)
	}
}

// gatedReader signals on its first Read and then waits for release
type gatedReader struct {
	r       *strings.Reader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedReader) Read(p []byte) (int, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.r.Read(p)
}

type failingReader struct {
	err error
}

func (f *failingReader) Read(p []byte) (int, error) {
	return 0, f.err
}
