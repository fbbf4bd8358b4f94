package fileops

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWorkDirReleaseRemovesEverything(t *testing.T) {
	root := t.TempDir()
	ops := NewFileOps(filepath.Join(root, "cfg"), root)

	dir, release, err := ops.NewWorkDir()
	if err != nil {
		t.Fatalf("NewWorkDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "clip.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	release()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("work dir still present after release: %v", err)
	}
}

func TestReplaceFileLeavesNothingOnFailure(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "nested", "out.wav")

	wantErr := errors.New("encoder exploded")
	err := ReplaceFile(target, 0o644, func(f *os.File) error {
		f.Write([]byte("half"))
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("target should not exist: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(target))
	if len(entries) != 0 {
		t.Fatalf("leftover files: %v", entries)
	}
}

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "config.yaml")

	if err := WriteFileAtomic(target, []byte("keys: {}\n"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "keys: {}\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	ops := NewFileOps(t.TempDir(), "")
	if _, err := ops.LoadConfig("nope.yaml"); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("got %v, want ErrConfigNotFound", err)
	}
}
