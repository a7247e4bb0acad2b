package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/storage"
)

// watcherTestEnv sets up a vault dir, storage, and index for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *Index) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store, New()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	vaultDir, store, ix := watcherTestEnv(t)
	logger := quietLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, ix, store, vaultDir, logger, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return ix.Fingerprint("new.md") != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "expected created:new.md callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	vaultDir, store, ix := watcherTestEnv(t)
	logger := quietLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, ix, store, vaultDir, logger, nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(vaultDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return ix.Fingerprint("subdir/deep.md") != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	vaultDir, store, ix := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte("# Delete Me"), 0o644)
	if err := Sync(ix, store, logger); err != nil {
		t.Fatal(err)
	}

	if ix.Fingerprint("del.md") == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, ix, store, vaultDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(vaultDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return ix.Fingerprint("del.md") == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	vaultDir, store, ix := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("# Rename"), 0o644)
	if err := Sync(ix, store, logger); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, ix, store, vaultDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return ix.Fingerprint("old.md") == "" && ix.Fingerprint("renamed.md") != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestSync_IndexesAndRemovesStale(t *testing.T) {
	vaultDir, store, ix := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(vaultDir, "keep.md"), []byte("---\nstatus: active\n---\n# Keep\nsee [[gone]]"), 0o644)
	_ = os.WriteFile(filepath.Join(vaultDir, "gone.md"), []byte("# Gone"), 0o644)

	if err := Sync(ix, store, logger); err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ix.Len())
	}
	if doc, _ := ix.Get("keep.md"); doc.Frontmatter["status"] != "active" {
		t.Error("frontmatter not indexed during sync")
	}
	if bl := ix.Backlinks("gone.md"); len(bl) != 1 || bl[0] != "keep.md" {
		t.Errorf("Backlinks(gone.md) = %v", bl)
	}

	// Remove one file on disk; a second sync drops the stale entry and the
	// target lives on as a ghost.
	_ = os.Remove(filepath.Join(vaultDir, "gone.md"))
	if err := Sync(ix, store, logger); err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 1 {
		t.Errorf("Len after stale removal = %d, want 1", ix.Len())
	}
	if !ix.IsGhost("gone.md") {
		t.Error("removed target should be a ghost while keep.md still links to it")
	}

	// A third sync with no disk changes is a no-op.
	before, _ := ix.Get("keep.md")
	if err := Sync(ix, store, logger); err != nil {
		t.Fatal(err)
	}
	after, _ := ix.Get("keep.md")
	if before != after {
		t.Error("unchanged file re-indexed on repeat sync")
	}
}
