package scan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCollectFilesSkipsGitAndLargeFiles(t *testing.T) {
	root := t.TempDir()

	write := func(rel string, data []byte) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write("php/general/php.ini", []byte("memory_limit = 128M\n"))
	write(filepath.Join(".git", "config"), []byte("[core]\n"))
	write("blob.bin", bytes.Repeat([]byte{0}, 2048))

	files, err := collectFiles(root, 1024)
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}

	if len(files) != 1 {
		t.Fatalf("files = %v, want just php.ini", files)
	}
	if filepath.Base(files[0]) != "php.ini" {
		t.Errorf("collected %s, want php.ini", files[0])
	}
}

func TestScanTreeCleanBundle(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "httpd.conf"), []byte("Listen 80\nServerName _\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	scanner, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	findings, err := scanner.ScanTree(context.Background(), root)
	if err != nil {
		t.Fatalf("ScanTree: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %+v, want none for a clean bundle", findings)
	}
}
