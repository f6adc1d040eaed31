// Package macro implements the marker substitution pass applied to
// build-definition files.
//
// A marker is written {{family:selector}} with no interior whitespace;
// family and selector are restricted to alphanumerics, "." and "-".
// The surrounding {{ }} delimiters belong to the token and are consumed
// by expansion. Fragment content is opaque literal text and is never
// re-scanned for further markers.
package macro

import (
	"fmt"
	"os"
	"regexp"
)

// markerRe matches one delimited marker token. The two capture groups
// are the family and the selector.
var markerRe = regexp.MustCompile(`\{\{([A-Za-z0-9.-]+):([A-Za-z0-9.-]+)\}\}`)

// Marker identifies one content fragment to substitute.
type Marker struct {
	Family   string
	Selector string
}

// String returns the bare "family:selector" form used in reporting.
func (m Marker) String() string {
	return m.Family + ":" + m.Selector
}

// Token returns the delimited form as it appears in a build-definition
// file. Expansion replaces exactly this byte sequence.
func (m Marker) Token() string {
	return "{{" + m.String() + "}}"
}

// ScanMarkers extracts the markers present in a build-definition file,
// in first-occurrence order, each yielded once.
func ScanMarkers(path string) ([]Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build definition %s: %w", path, err)
	}
	return scan(data), nil
}

func scan(data []byte) []Marker {
	var markers []Marker
	seen := map[Marker]bool{}

	for _, m := range markerRe.FindAllSubmatch(data, -1) {
		marker := Marker{Family: string(m[1]), Selector: string(m[2])}
		if seen[marker] {
			continue
		}
		seen[marker] = true
		markers = append(markers, marker)
	}
	return markers
}
