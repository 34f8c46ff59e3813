package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange after the database file is written by any
// connection, including other processes such as the signs CLI. Events
// arriving within settle of the first one are coalesced into one call.
// Watch blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, settle time.Duration, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	// SQLite replaces its journal files, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var fire <-chan time.Time
	schedule := func() {
		if fire == nil {
			fire = time.After(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if s.owns(ev.Name) && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				schedule()
			}
		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
			// Events may have been dropped.
			schedule()
		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// owns reports whether name is the database file or one of its journals.
func (s *Store) owns(name string) bool {
	base := filepath.Base(s.path)
	switch filepath.Base(name) {
	case base, base + "-wal", base + "-journal":
		return true
	}
	return false
}
