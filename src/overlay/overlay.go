// Package overlay deploys configuration bundle trees into variant
// build contexts.
package overlay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sofmeright/imageforge/src/variant"
)

// ErrCopy wraps any failure while clearing or copying an overlay tree.
var ErrCopy = errors.New("overlay copy failed")

// Engine copies configuration bundles into the conf/ directory of
// matched variants. Strict by default: the first failing variant aborts
// the run. With Lenient set, a failing variant is reported through
// Report and its siblings still get their overlay.
type Engine struct {
	Lenient bool
	Report  func(v variant.Variant, err error)
}

// Overlay deploys sourceDir into each variant's conf/ directory.
// With clearFirst, a variant's previous conf/ tree is removed entirely
// before the copy, so state from an earlier run never leaks into the
// result. Without it, the copy layers on top of whatever is already
// there, overwriting on path collisions.
func (e *Engine) Overlay(sourceDir string, variants []variant.Variant, clearFirst bool) error {
	for _, v := range variants {
		if err := e.apply(sourceDir, v.ConfDir(), clearFirst); err != nil {
			if e.Lenient {
				if e.Report != nil {
					e.Report(v, err)
				}
				continue
			}
			return fmt.Errorf("variant %s: %w", v.Name, err)
		}
	}
	return nil
}

// Bootstrap deploys sourceDir into each variant's build-context root.
// Bootstrap files layer onto the context without ever clearing it; the
// context root holds the build definition and is not owned by the
// overlay engine the way conf/ is.
func (e *Engine) Bootstrap(sourceDir string, variants []variant.Variant) error {
	for _, v := range variants {
		if err := e.apply(sourceDir, v.Path(), false); err != nil {
			if e.Lenient {
				if e.Report != nil {
					e.Report(v, err)
				}
				continue
			}
			return fmt.Errorf("variant %s: %w", v.Name, err)
		}
	}
	return nil
}

func (e *Engine) apply(sourceDir, destDir string, clearFirst bool) error {
	if clearFirst {
		if err := os.RemoveAll(destDir); err != nil {
			return fmt.Errorf("%w: clearing %s: %v", ErrCopy, destDir, err)
		}
	}
	if err := copyTree(sourceDir, destDir); err != nil {
		return fmt.Errorf("%w: %s → %s: %v", ErrCopy, sourceDir, destDir, err)
	}
	return nil
}

// copyTree recursively copies src's contents into dest, creating dest
// as needed. Existing destination files are overwritten; files not
// present in src are left in place (merge-by-overwrite).
func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			return os.MkdirAll(target, dirMode(info))
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// Overwrites reuse the existing inode; make sure the bundle's mode wins.
	return os.Chmod(dest, mode)
}

func dirMode(info os.FileInfo) os.FileMode {
	if m := info.Mode().Perm(); m != 0 {
		return m
	}
	return 0o755
}
