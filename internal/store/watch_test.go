package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_WatchSeesOtherConnections(t *testing.T) {
	s := newTestStore(t)

	other, err := New(s.Path())
	if err != nil {
		t.Fatalf("failed to open second store: %v", err)
	}
	defer other.Close()

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, 20*time.Millisecond, func() { changes <- struct{}{} })
	}()

	// The watcher registers asynchronously, so keep writing until it reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		sg := &Sign{ID: fmt.Sprintf("cli-%d", i), Label: "B", Landmarks: make([]float64, 63)}
		if err := other.Signs().Create(sg); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		select {
		case <-changes:
		case <-tick.C:
			continue
		case <-deadline:
			t.Fatal("Watch did not report a change made by another connection")
		}
		break
	}

	signs, err := s.Signs().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(signs) == 0 {
		t.Error("List() returned no signs after reported change")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStore_Owns(t *testing.T) {
	s := &Store{path: filepath.Join("data", "signs.db")}

	tests := []struct {
		name string
		want bool
	}{
		{filepath.Join("data", "signs.db"), true},
		{filepath.Join("data", "signs.db-wal"), true},
		{filepath.Join("data", "signs.db-journal"), true},
		{filepath.Join("data", "signs.db-shm"), false},
		{filepath.Join("data", "other.db"), false},
	}
	for _, tt := range tests {
		if got := s.owns(tt.name); got != tt.want {
			t.Errorf("owns(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
