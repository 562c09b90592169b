package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorageGet(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "hw1"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "hw1", "1.in"), []byte("3 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewLocalStorage(root)
	data, err := s.Get(context.Background(), "hw1/1.in")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "3 4\n" {
		t.Fatalf("payload mismatch: %q", data)
	}

	if _, err := s.Get(context.Background(), "hw1/missing.in"); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}
