package variant

import (
	"regexp"
	"strings"
	"sync"
)

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

// Matches reports whether a variant name matches a glob filter.
// "*" matches every name. Otherwise matching is anchored and
// case-sensitive: "*" matches any run of characters (never a path
// separator appears in variant names anyway), everything else is
// literal. An empty filter matches only the empty name.
func Matches(name, filter string) bool {
	if filter == "*" {
		return true
	}
	return compileFilter(filter).MatchString(name)
}

// compileFilter turns a glob into an anchored regular expression.
// Compiled patterns are cached: the same handful of filters is applied
// across every family in a dispatch run.
func compileFilter(filter string) *regexp.Regexp {
	patternMu.Lock()
	defer patternMu.Unlock()

	if re, ok := patternCache[filter]; ok {
		return re
	}

	var b strings.Builder
	b.WriteString("^")
	for _, part := range strings.Split(filter, "*") {
		b.WriteString(regexp.QuoteMeta(part))
		b.WriteString(".*")
	}
	expr := strings.TrimSuffix(b.String(), ".*") + "$"

	re := regexp.MustCompile(expr)
	patternCache[filter] = re
	return re
}
