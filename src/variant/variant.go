// Package variant models the per-OS build contexts inside an image
// family directory and the glob filtering used to select them.
package variant

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefinitionFile is the build-definition file every complete variant carries.
const DefinitionFile = "Dockerfile"

// Variant is one concrete build context (an OS/tag combination) within
// an image family. Discovered by directory listing at dispatch time and
// immutable for the duration of one run.
type Variant struct {
	Name          string
	FamilyPath    string
	HasDefinition bool
}

// Path returns the variant's build-context directory.
func (v Variant) Path() string {
	return filepath.Join(v.FamilyPath, v.Name)
}

// DefinitionPath returns the variant's build-definition file path.
func (v Variant) DefinitionPath() string {
	return filepath.Join(v.Path(), DefinitionFile)
}

// ConfDir returns the configuration overlay directory owned by the
// overlay engine.
func (v Variant) ConfDir() string {
	return filepath.Join(v.Path(), "conf")
}

// Discover lists the variants of one family directory. Non-directories
// are skipped. The result is in display order (see Sort).
func Discover(familyPath string) ([]Variant, error) {
	entries, err := os.ReadDir(familyPath)
	if err != nil {
		return nil, fmt.Errorf("listing family %s: %w", familyPath, err)
	}

	var variants []Variant
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v := Variant{
			Name:       e.Name(),
			FamilyPath: familyPath,
		}
		if fi, err := os.Stat(v.DefinitionPath()); err == nil && fi.Mode().IsRegular() {
			v.HasDefinition = true
		}
		variants = append(variants, v)
	}

	Sort(variants)
	return variants, nil
}

// Filter returns the variants whose names match the glob filter.
func Filter(variants []Variant, filter string) []Variant {
	var matched []Variant
	for _, v := range variants {
		if Matches(v.Name, filter) {
			matched = append(matched, v)
		}
	}
	return matched
}

// Sort orders variants by distro prefix, then by version suffix.
// Version suffixes compare numerically via semver so that "centos-7"
// sorts before "centos-10" where a plain string sort would not.
func Sort(variants []Variant) {
	sort.SliceStable(variants, func(i, j int) bool {
		pi, vi := splitName(variants[i].Name)
		pj, vj := splitName(variants[j].Name)
		if pi != pj {
			return pi < pj
		}
		if vi != nil && vj != nil {
			return vi.LessThan(vj)
		}
		return variants[i].Name < variants[j].Name
	})
}

// splitName separates a variant name into its distro prefix and a
// parsed version suffix, e.g. "alpine-3.18" → ("alpine", 3.18.0).
// Names without a parseable version yield a nil version.
func splitName(name string) (string, *semver.Version) {
	idx := strings.LastIndex(name, "-")
	if idx < 0 {
		return name, nil
	}
	ver, err := semver.NewVersion(name[idx+1:])
	if err != nil {
		return name, nil
	}
	return name[:idx], ver
}
