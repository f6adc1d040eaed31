package macro

import (
	"fmt"
	"os"
	"path/filepath"
)

// UnresolvedError reports a marker with no fragment behind it. This is
// always fatal for the whole run: a missing fragment is an authoring
// error in the provisioning tree and must surface immediately.
type UnresolvedError struct {
	Marker       Marker
	ExpectedPath string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved macro %q: no fragment at %s", e.Marker, e.ExpectedPath)
}

// Resolve maps a marker to its fragment path under the provisioning
// root: <root>/<family>/Dockerfile/Dockerfile.<selector>. The fragment
// must exist as a regular file.
func Resolve(m Marker, provisionRoot string) (string, error) {
	path := filepath.Join(provisionRoot, m.Family, "Dockerfile", "Dockerfile."+m.Selector)

	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return "", &UnresolvedError{Marker: m, ExpectedPath: path}
	}
	return path, nil
}
