package storage

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func testStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	// Read before write
	if _, err := s.Read(ctx, "tasks/a.yaml"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	exists, err := s.Exists(ctx, "tasks/a.yaml")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Error("expected not to exist before write")
	}

	// Write and read back
	if err := s.Write(ctx, "tasks/a.yaml", []byte("id: a")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := s.Write(ctx, "tasks/b.yaml", []byte("id: b")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := s.Read(ctx, "tasks/a.yaml")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "id: a" {
		t.Errorf("expected 'id: a', got %q", data)
	}

	// Overwrite
	if err := s.Write(ctx, "tasks/a.yaml", []byte("id: a2")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, err = s.Read(ctx, "tasks/a.yaml")
	if err != nil {
		t.Fatalf("read after overwrite failed: %v", err)
	}
	if string(data) != "id: a2" {
		t.Errorf("expected 'id: a2', got %q", data)
	}

	// List by prefix
	paths, err := s.List(ctx, "tasks")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	sort.Strings(paths)
	if len(paths) != 2 || paths[0] != "tasks/a.yaml" || paths[1] != "tasks/b.yaml" {
		t.Errorf("unexpected listing %v", paths)
	}
	paths, err = s.List(ctx, "annotators")
	if err != nil {
		t.Fatalf("list of empty prefix failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected empty listing, got %v", paths)
	}

	// Delete
	if err := s.Delete(ctx, "tasks/a.yaml"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Read(ctx, "tasks/a.yaml"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "tasks/a.yaml"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestLocalStorage(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	testStorage(t, s)
}

func TestMemoryStorage(t *testing.T) {
	testStorage(t, NewMemoryStorage())
}

func TestMemoryStorageCopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	buf := []byte("original")
	if err := s.Write(ctx, "k", buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	buf[0] = 'X'

	data, err := s.Read(ctx, "k")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("stored data must not alias the caller's buffer, got %q", data)
	}
}
