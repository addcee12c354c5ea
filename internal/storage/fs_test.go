package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

const planDoc = "---\ntitle: Lipids\n---\nLower [[ldl]].\n"

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("plans/lipids.md", []byte(planDoc)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("plans/lipids.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != planDoc {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	s := tempVault(t)
	_, err := s.Read("nope.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestCreateRefusesOverwrite(t *testing.T) {
	s := tempVault(t)
	if err := s.Create("plans/a.md", []byte("first")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("plans/a.md", []byte("second"))
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("second Create err = %v, want os.ErrExist", err)
	}
	got, _ := s.Read("plans/a.md")
	if string(got) != "first" {
		t.Errorf("content = %q, want first", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), "plans", ".laguz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.Move("old.md", "archive/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("archive/new.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.md"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("plans/b.md", []byte("b"))
	_ = s.Write("reports/labs.pdf", []byte("%PDF-1.4"))
	_ = s.Write(".trash/c.md", []byte("c"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(items), items)
	}
	for _, it := range items {
		if it.Path == "plans/b.md" && it.Checksum != Checksum([]byte("b")) {
			t.Errorf("checksum for %s = %s", it.Path, it.Checksum)
		}
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempVault(t)
	items, err := s.List("plans")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.Create(p, []byte("x")); err == nil {
			t.Errorf("expected error for create of %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.md", []byte("original"))
	if err := s.Write("atomic.md", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".laguz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestChecksum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Checksum([]byte("abc")); got != want {
		t.Errorf("Checksum = %s", got)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "laguz-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
