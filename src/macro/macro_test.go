package macro

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// mkFragment creates <root>/<family>/Dockerfile/Dockerfile.<selector>.
func mkFragment(t *testing.T, root, family, selector, content string) string {
	t.Helper()

	path := filepath.Join(root, family, "Dockerfile", "Dockerfile."+selector)
	writeFile(t, path, content)
	return path
}

func TestScanMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Dockerfile")
	writeFile(t, path, `FROM alpine:3
{{apache:alpine-3}}
RUN echo hi
{{php.mod:centos-7}}
{{apache:alpine-3}}
# not markers: {{bad marker}} {{toomany:colons:here}} plain:text
`)

	markers, err := ScanMarkers(path)
	if err != nil {
		t.Fatalf("ScanMarkers: %v", err)
	}

	want := []Marker{
		{Family: "apache", Selector: "alpine-3"},
		{Family: "php.mod", Selector: "centos-7"},
	}
	if len(markers) != len(want) {
		t.Fatalf("got %d markers %v, want %d", len(markers), markers, len(want))
	}
	for i := range want {
		if markers[i] != want[i] {
			t.Errorf("marker %d = %v, want %v", i, markers[i], want[i])
		}
	}
}

func TestScanMarkersReadError(t *testing.T) {
	if _, err := ScanMarkers(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for unreadable file")
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	fragment := mkFragment(t, root, "apache", "alpine-3", "RUN apk add apache2\n")

	got, err := Resolve(Marker{Family: "apache", Selector: "alpine-3"}, root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != fragment {
		t.Errorf("Resolve = %s, want %s", got, fragment)
	}
}

func TestResolveMissingFragment(t *testing.T) {
	root := t.TempDir()
	m := Marker{Family: "ghost", Selector: "missing"}

	_, err := Resolve(m, root)

	var unresolved *UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("got %v, want UnresolvedError", err)
	}
	if unresolved.Marker != m {
		t.Errorf("Marker = %v, want %v", unresolved.Marker, m)
	}
	wantPath := filepath.Join(root, "ghost", "Dockerfile", "Dockerfile.missing")
	if unresolved.ExpectedPath != wantPath {
		t.Errorf("ExpectedPath = %s, want %s", unresolved.ExpectedPath, wantPath)
	}
	if !strings.Contains(unresolved.Error(), "ghost:missing") {
		t.Errorf("error message %q does not name the marker", unresolved.Error())
	}
}

func TestResolveDirectoryIsNotAFragment(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "apache", "Dockerfile", "Dockerfile.alpine-3"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, err := Resolve(Marker{Family: "apache", Selector: "alpine-3"}, root); err == nil {
		t.Fatal("expected error when fragment path is a directory")
	}
}

func TestExpandRoundTrip(t *testing.T) {
	root := t.TempDir()
	fragment := mkFragment(t, root, "apache", "alpine-3", "RUN apk add apache2")

	target := filepath.Join(t.TempDir(), "Dockerfile")
	writeFile(t, target, "FROM alpine:3\n{{apache:alpine-3}}\nCMD [\"httpd\"]\n")

	m := Marker{Family: "apache", Selector: "alpine-3"}
	if err := Expand(target, m, fragment); err != nil {
		t.Fatalf("Expand: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "FROM alpine:3\nRUN apk add apache2\nCMD [\"httpd\"]\n"
	if string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestExpandReplacesEveryOccurrence(t *testing.T) {
	root := t.TempDir()
	fragment := mkFragment(t, root, "env", "base", "ENV X=1")

	target := filepath.Join(t.TempDir(), "Dockerfile")
	writeFile(t, target, "{{env:base}}\nRUN true\n{{env:base}}\n")

	if err := Expand(target, Marker{Family: "env", Selector: "base"}, fragment); err != nil {
		t.Fatalf("Expand: %v", err)
	}

	got, _ := os.ReadFile(target)
	if want := "ENV X=1\nRUN true\nENV X=1\n"; string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestExpandFragmentIsOpaque(t *testing.T) {
	// Fragment content that looks like a marker must be inserted
	// verbatim, never re-scanned.
	root := t.TempDir()
	fragment := mkFragment(t, root, "a", "b", "{{other:marker}}")

	target := filepath.Join(t.TempDir(), "Dockerfile")
	writeFile(t, target, "{{a:b}}\n")

	if err := Expand(target, Marker{Family: "a", Selector: "b"}, fragment); err != nil {
		t.Fatalf("Expand: %v", err)
	}

	got, _ := os.ReadFile(target)
	if want := "{{other:marker}}\n"; string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestExpandMissingFragmentLeavesTargetIntact(t *testing.T) {
	target := filepath.Join(t.TempDir(), "Dockerfile")
	original := "FROM alpine:3\n{{a:b}}\n"
	writeFile(t, target, original)

	err := Expand(target, Marker{Family: "a", Selector: "b"}, filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("expected error for missing fragment")
	}

	got, readErr := os.ReadFile(target)
	if readErr != nil {
		t.Fatalf("target no longer readable: %v", readErr)
	}
	if string(got) != original {
		t.Errorf("target mutated on failed expand: %q", got)
	}
}

func TestExpandFile(t *testing.T) {
	root := t.TempDir()
	mkFragment(t, root, "apache", "alpine-3", "RUN apk add apache2")
	mkFragment(t, root, "php", "alpine-3", "RUN apk add php83")

	target := filepath.Join(t.TempDir(), "Dockerfile")
	writeFile(t, target, "FROM alpine:3\n{{apache:alpine-3}}\n{{php:alpine-3}}\n")

	n, err := ExpandFile(target, root)
	if err != nil {
		t.Fatalf("ExpandFile: %v", err)
	}
	if n != 2 {
		t.Errorf("expanded %d markers, want 2", n)
	}

	got, _ := os.ReadFile(target)
	if want := "FROM alpine:3\nRUN apk add apache2\nRUN apk add php83\n"; string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestExpandFileUnresolvedAbortsBeforeWriting(t *testing.T) {
	root := t.TempDir()
	mkFragment(t, root, "apache", "alpine-3", "RUN apk add apache2")

	target := filepath.Join(t.TempDir(), "Dockerfile")
	original := "{{apache:alpine-3}}\n{{ghost:missing}}\n"
	writeFile(t, target, original)

	_, err := ExpandFile(target, root)

	var unresolved *UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("got %v, want UnresolvedError", err)
	}

	// The resolvable marker must not have been substituted either.
	got, _ := os.ReadFile(target)
	if string(got) != original {
		t.Errorf("target mutated despite unresolved marker: %q", got)
	}
}
