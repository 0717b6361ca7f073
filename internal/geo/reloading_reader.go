package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// ReloadingReader is an MmdbReader that reopens its file whenever it is
// rewritten or replaced on disk.
type ReloadingReader struct {
	path    string
	mu      sync.RWMutex
	reader  *MmdbReader
	reloads atomic.Int64
}

// NewReloadingReader opens path and returns a reader serving it.
func NewReloadingReader(path string) (*ReloadingReader, error) {
	reader, err := NewMmdbReader(path)
	if err != nil {
		return nil, err
	}
	return &ReloadingReader{path: path, reader: reader}, nil
}

// Lookup delegates to the currently loaded database.
func (r *ReloadingReader) Lookup(ctx context.Context, ip net.IP) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.reader == nil {
		return nil, &APIError{Message: "MMDB not loaded"}
	}
	return r.reader.Lookup(ctx, ip)
}

// Ready reports whether a database is loaded.
func (r *ReloadingReader) Ready() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.reader == nil {
		return errors.New("MMDB not loaded")
	}
	return nil
}

// Reloads returns how many times the database was reopened.
func (r *ReloadingReader) Reloads() int64 {
	return r.reloads.Load()
}

// Reload reopens the database file and swaps it in. On failure the
// previous database keeps serving.
func (r *ReloadingReader) Reload() error {
	next, err := NewMmdbReader(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.reader
	r.reader = next
	r.mu.Unlock()

	r.reloads.Add(1)
	if prev != nil {
		return prev.Close()
	}
	return nil
}

// Watch reloads the database on file changes until ctx is done. The parent
// directory is watched so atomic renames over the file are noticed.
func (r *ReloadingReader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.path, err)
	}

	target := filepath.Clean(r.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if err := r.Reload(); err != nil {
				slog.Warn("MMDB reload failed", "path", r.path, "error", err)
				continue
			}
			slog.Info("MMDB reloaded", "path", r.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("MMDB watcher error", "path", r.path, "error", err)
		}
	}
}

// Close releases the loaded database.
func (r *ReloadingReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reader == nil {
		return nil
	}
	err := r.reader.Close()
	r.reader = nil
	return err
}
