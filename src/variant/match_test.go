package variant

import "testing"

func TestMatches(t *testing.T) {
	cases := []struct {
		name   string
		filter string
		want   bool
	}{
		// "*" matches everything
		{"alpine-3", "*", true},
		{"", "*", true},
		{"centos-7", "*", true},

		// prefix globs
		{"centos-7", "centos-*", true},
		{"centos-7.9", "centos-*", true},
		{"alpine-3", "centos-*", false},

		// literal matching is anchored, not substring
		{"alpine-3", "alpine-3", true},
		{"alpine-3.18", "alpine-3", false},
		{"xalpine-3", "alpine-3", false},

		// "*" is any run of characters, including empty
		{"centos-", "centos-*", true},
		{"ubuntu-22.04", "*-22.04", true},
		{"ubuntu-20.04", "*-22.04", false},
		{"alpine-3-slim", "alpine-*-slim", true},

		// case-sensitive
		{"Alpine-3", "alpine-*", false},

		// dots are literal, not regex metacharacters
		{"alpine-3.18", "alpine-3.18", true},
		{"alpine-3x18", "alpine-3.18", false},

		// empty filter matches only the empty name
		{"alpine-3", "", false},
		{"", "", true},
	}

	for _, tc := range cases {
		if got := Matches(tc.name, tc.filter); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.name, tc.filter, got, tc.want)
		}
	}
}
