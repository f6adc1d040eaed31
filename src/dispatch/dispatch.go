// Package dispatch runs named deployment targets against the image
// family tree: configuration overlays first, then an optional macro
// expansion pass over every build-definition file.
package dispatch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sofmeright/imageforge/src/config"
	"github.com/sofmeright/imageforge/src/macro"
	"github.com/sofmeright/imageforge/src/output"
	"github.com/sofmeright/imageforge/src/overlay"
	"github.com/sofmeright/imageforge/src/variant"
)

// RequestAll dispatches every configured target.
const RequestAll = "all"

// Dispatcher executes the declarative target table. Everything runs
// sequentially: the filesystem is the only shared resource and no two
// operations in a run touch the same path concurrently.
type Dispatcher struct {
	Config  *config.Config
	Root    string
	Printer *output.Printer

	// DryRun prints the plan without touching the filesystem.
	DryRun bool
	// Lenient logs per-variant copy failures and continues with
	// sibling variants instead of aborting.
	Lenient bool
	// Families restricts dispatch to the named families (delta mode).
	// Nil means no restriction.
	Families map[string]bool
}

// Run dispatches the requested target, or every target for "all".
// Requesting a name absent from the table is an error.
func (d *Dispatcher) Run(requested string) error {
	if requested != RequestAll {
		if _, ok := d.Config.Targets[requested]; !ok {
			return fmt.Errorf("unknown target %q (configured: %v)", requested, d.Config.TargetNames())
		}
	}

	for _, name := range d.Config.TargetNames() {
		if requested != RequestAll && requested != name {
			continue
		}
		if err := d.runTarget(name, d.Config.Targets[name]); err != nil {
			return fmt.Errorf("target %s: %w", name, err)
		}
	}
	return nil
}

// runTarget executes one target's operation sequence. A variant's
// conf/ directory is cleared at most once per target run, before that
// variant's first overlay, so later operations in the sequence layer
// on top of earlier ones.
func (d *Dispatcher) runTarget(name string, target config.Target) error {
	d.Printer.Target(name)

	eng := &overlay.Engine{
		Lenient: d.Lenient,
		Report: func(v variant.Variant, err error) {
			d.Printer.Warn("variant %s skipped: %v", v.Name, err)
		},
	}

	cleared := map[string]bool{}

	for _, op := range target.Operations {
		if d.skipFamily(op.Family) {
			continue
		}

		familyDir := filepath.Join(d.Root, d.Config.Paths.Images, op.Family)
		variants, err := variant.Discover(familyDir)
		if err != nil {
			return err
		}
		matched := variant.Filter(variants, op.Filter)

		d.Printer.Deploy(op.Bundle, op.Family, names(matched))
		if d.DryRun || len(matched) == 0 {
			continue
		}

		bundleDir := filepath.Join(d.Root, d.Config.Paths.Provision, op.Bundle)
		if _, err := os.Stat(bundleDir); err != nil {
			return fmt.Errorf("bundle %s: %w", op.Bundle, err)
		}

		if op.Bootstrap {
			if err := eng.Bootstrap(bundleDir, matched); err != nil {
				return err
			}
			continue
		}

		// Partition by whether this target already cleared the variant.
		var fresh, layered []variant.Variant
		for _, v := range matched {
			if cleared[v.Path()] {
				layered = append(layered, v)
			} else {
				fresh = append(fresh, v)
				cleared[v.Path()] = true
			}
		}

		if err := eng.Overlay(bundleDir, fresh, true); err != nil {
			return err
		}
		if err := eng.Overlay(bundleDir, layered, false); err != nil {
			return err
		}
	}

	if target.ExpandMacros {
		if err := d.expandAll(); err != nil {
			return err
		}
	}
	return nil
}

// expandAll runs the macro pass over every build-definition file in
// the image tree. An unresolved marker aborts immediately.
func (d *Dispatcher) expandAll() error {
	provisionRoot := filepath.Join(d.Root, d.Config.Paths.Provision)
	imagesRoot := filepath.Join(d.Root, d.Config.Paths.Images)

	return filepath.WalkDir(imagesRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || entry.Name() != variant.DefinitionFile {
			return nil
		}
		if family, ok := d.familyOf(path, imagesRoot); ok && d.skipFamily(family) {
			return nil
		}

		if d.DryRun {
			markers, err := macro.ScanMarkers(path)
			if err != nil {
				return err
			}
			d.Printer.Expand(path, len(markers))
			return nil
		}

		n, err := macro.ExpandFile(path, provisionRoot)
		if err != nil {
			return err
		}
		if n > 0 {
			d.Printer.Expand(path, n)
		}
		return nil
	})
}

// familyOf extracts the family directory name from a path under the
// image tree root.
func (d *Dispatcher) familyOf(path, imagesRoot string) (string, bool) {
	rel, err := filepath.Rel(imagesRoot, path)
	if err != nil {
		return "", false
	}
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	if first == "" || first == "." || first == ".." {
		return "", false
	}
	return first, true
}

func (d *Dispatcher) skipFamily(family string) bool {
	return d.Families != nil && !d.Families[family]
}

func names(variants []variant.Variant) []string {
	out := make([]string, len(variants))
	for i, v := range variants {
		out[i] = v.Name
	}
	return out
}
