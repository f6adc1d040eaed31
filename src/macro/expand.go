package macro

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Expand replaces every occurrence of the marker's token in targetFile
// with the fragment's content, in place. Fragment content is inserted
// verbatim and never re-scanned, so a single linear pass cannot recurse.
// The rewrite is all-or-nothing: content is staged in a temp file next
// to the target and swapped in with an atomic rename.
func Expand(targetFile string, m Marker, fragmentPath string) error {
	fragment, err := os.ReadFile(fragmentPath)
	if err != nil {
		return fmt.Errorf("reading fragment %s: %w", fragmentPath, err)
	}

	original, err := os.ReadFile(targetFile)
	if err != nil {
		return fmt.Errorf("reading build definition %s: %w", targetFile, err)
	}

	expanded := bytes.ReplaceAll(original, []byte(m.Token()), fragment)
	if bytes.Equal(expanded, original) {
		return nil
	}

	return replaceFile(targetFile, expanded)
}

// ExpandFile scans targetFile for markers, resolves each against the
// provisioning root, and substitutes them all. Returns the number of
// distinct markers expanded. A marker that does not resolve aborts
// before any substitution has touched the file.
func ExpandFile(targetFile, provisionRoot string) (int, error) {
	markers, err := ScanMarkers(targetFile)
	if err != nil {
		return 0, err
	}

	type resolved struct {
		marker   Marker
		fragment string
	}

	// Resolve everything up front so an unresolved marker never leaves
	// the file half-expanded.
	fragments := make([]resolved, 0, len(markers))
	for _, m := range markers {
		path, err := Resolve(m, provisionRoot)
		if err != nil {
			return 0, err
		}
		fragments = append(fragments, resolved{marker: m, fragment: path})
	}

	for _, r := range fragments {
		if err := Expand(targetFile, r.marker, r.fragment); err != nil {
			return 0, err
		}
	}
	return len(fragments), nil
}

// replaceFile writes data to a sibling temp file and renames it over
// path, preserving the original file's mode. A failed write never
// leaves the target truncated.
func replaceFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("staging rewrite of %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
