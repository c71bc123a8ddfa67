package utils_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/benchrunner/benchrunner/pkg/utils"
)

func TestFileSystemUtils_HashAndSize(t *testing.T) {
	fs := utils.NewFileSystemUtils()
	path := filepath.Join(t.TempDir(), "fib.single_core.result.txt")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	hash, err := fs.GetFileHash(path)
	if err != nil {
		t.Fatalf("GetFileHash() error = %v", err)
	}
	if hash != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("unexpected sha256 %s", hash)
	}

	size, err := fs.FileSize(path)
	if err != nil || size != 3 {
		t.Errorf("FileSize() = %d, %v", size, err)
	}

	if _, err := fs.FileSize(filepath.Dir(path)); err == nil {
		t.Error("expected error for a directory")
	}
}

func TestFileSystemUtils_IsWritable(t *testing.T) {
	fs := utils.NewFileSystemUtils()
	dir := t.TempDir()

	if fs.IsWritable(filepath.Join(dir, "missing")) {
		t.Error("missing file must not be writable")
	}

	path := filepath.Join(dir, "rw.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !fs.IsWritable(path) {
		t.Error("expected file to be writable")
	}

	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	if err := os.Chmod(path, 0444); err != nil {
		t.Fatal(err)
	}
	if fs.IsWritable(path) {
		t.Error("expected read-only file to be reported as not writable")
	}
}

func TestFileSystemUtils_WriteFileAtomic(t *testing.T) {
	fs := utils.NewFileSystemUtils()
	path := filepath.Join(t.TempDir(), "nested", "runs", "report.json")

	if err := fs.WriteFileAtomic(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != `{"ok":true}` {
		t.Errorf("unexpected content %q, %v", data, err)
	}
	if utils.FileExists(path + ".tmp") {
		t.Error("temp file should be renamed away")
	}
	if !fs.Exists(path) || !utils.FileExists(path) {
		t.Error("expected file to exist")
	}
}

func TestFileSystemUtils_Resolve(t *testing.T) {
	fs := utils.NewFileSystemUtils()

	if got := fs.Resolve("/srv", "./results/a.txt"); got != filepath.Join("/srv", "results", "a.txt") {
		t.Errorf("Resolve() = %s", got)
	}
	if got := fs.Resolve("", "./results/a.txt"); got != "./results/a.txt" {
		t.Errorf("Resolve() with empty base = %s", got)
	}
	abs := filepath.Join(t.TempDir(), "a.txt")
	if got := fs.Resolve("/srv", abs); got != abs {
		t.Errorf("Resolve() absolute = %s", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:         "512 B",
		2048:        "2.0 KB",
		5 * 1 << 20: "5.0 MB",
	}
	for in, want := range tests {
		if got := utils.FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %s, want %s", in, got, want)
		}
	}
}
