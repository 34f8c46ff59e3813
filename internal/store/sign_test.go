package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func handVector(offset float64) []float64 {
	v := make([]float64, 63)
	for i := range v {
		v[i] = offset + float64(i)/100
	}
	return v
}

func TestSignRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Signs()

	sign := &Sign{ID: "sign-1", Label: "A", Landmarks: handVector(0)}
	if err := repo.Create(sign); err != nil {
		t.Fatalf("failed to create sign: %v", err)
	}
	if sign.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	got, err := repo.GetByID("sign-1")
	if err != nil {
		t.Fatalf("failed to get sign: %v", err)
	}
	if got.Label != "A" {
		t.Errorf("Label = %q, want %q", got.Label, "A")
	}
	if len(got.Landmarks) != 63 {
		t.Fatalf("got %d landmark values, want 63", len(got.Landmarks))
	}
	for i, v := range sign.Landmarks {
		if got.Landmarks[i] != v {
			t.Fatalf("landmark value %d = %f, want %f", i, got.Landmarks[i], v)
		}
	}
}

func TestSignRepository_Create_Invalid(t *testing.T) {
	s := newTestStore(t)
	repo := s.Signs()

	if err := repo.Create(&Sign{ID: "bad", Label: "A", Landmarks: []float64{1, 2}}); err == nil {
		t.Error("partial triple should be rejected")
	}

	if err := repo.Create(&Sign{ID: "dup", Label: "A", Landmarks: handVector(0)}); err != nil {
		t.Fatalf("failed to create sign: %v", err)
	}
	if err := repo.Create(&Sign{ID: "dup", Label: "B", Landmarks: handVector(1)}); err == nil {
		t.Error("duplicate ID should be rejected")
	}

	// The failed insert must not leave landmarks behind.
	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM sign_landmarks").Scan(&count); err != nil {
		t.Fatalf("failed to count landmarks: %v", err)
	}
	if count != 21 {
		t.Errorf("landmark rows = %d, want 21", count)
	}
}

func TestSignRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Signs().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSignRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Signs()

	signs := []*Sign{
		{ID: "sign-1", Label: "HELLO", Landmarks: handVector(0)},
		{ID: "sign-2", Label: "A", Landmarks: handVector(1)},
		{ID: "sign-3", Label: "HELLO", Landmarks: handVector(2)},
	}
	for _, sg := range signs {
		if err := repo.Create(sg); err != nil {
			t.Fatalf("failed to create sign %q: %v", sg.ID, err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list signs: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 signs, got %d", len(list))
	}
	for i, sg := range list {
		if sg.ID != signs[i].ID {
			t.Errorf("list[%d].ID = %q, want %q", i, sg.ID, signs[i].ID)
		}
		if len(sg.Landmarks) != 63 || sg.Landmarks[0] != signs[i].Landmarks[0] {
			t.Errorf("list[%d] landmarks not loaded", i)
		}
	}

	labels, err := repo.Labels()
	if err != nil {
		t.Fatalf("failed to list labels: %v", err)
	}
	if len(labels) != 2 || labels[0] != "A" || labels[1] != "HELLO" {
		t.Errorf("Labels() = %v, want [A HELLO]", labels)
	}
}

func TestSignRepository_List_Empty(t *testing.T) {
	s := newTestStore(t)

	list, err := s.Signs().List()
	if err != nil {
		t.Fatalf("failed to list signs: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
}

func TestSignRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Signs()

	if err := repo.Create(&Sign{ID: "sign-1", Label: "A", Landmarks: handVector(0)}); err != nil {
		t.Fatalf("failed to create sign: %v", err)
	}

	if err := repo.Delete("sign-1"); err != nil {
		t.Fatalf("failed to delete sign: %v", err)
	}
	if _, err := repo.GetByID("sign-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM sign_landmarks").Scan(&count); err != nil {
		t.Fatalf("failed to count landmarks: %v", err)
	}
	if count != 0 {
		t.Errorf("landmarks should cascade on delete, %d left", count)
	}

	if err := repo.Delete("sign-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}
