// Package routes implements the Routes Engine (C4): most-specific-pattern-
// wins glob matching over a site's `routes` table (SPEC_FULL.md §4.4).
package routes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/walportal/gateway/internal/resource"
)

// compiledRoute is one routes-table entry with its glob pattern compiled to
// a regular expression anchored at both ends, plus the specificity score
// used to rank it against other matching entries.
type compiledRoute struct {
	pattern      string
	target       string
	re           *regexp.Regexp
	literalChars int
	wildcards    int
}

// Table is a parsed, ready-to-match routes table. A Table with no entries
// matches nothing (SPEC_FULL.md §3 invariant 4).
type Table struct {
	routes []compiledRoute
}

// New compiles entries, in the order supplied, into a Table. Order matters
// only as the tie-break between equally specific patterns.
func New(entries []resource.RouteEntry) (*Table, error) {
	t := &Table{routes: make([]compiledRoute, 0, len(entries))}
	for _, e := range entries {
		re, err := compileGlob(e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("routes: pattern %q: %w", e.Pattern, err)
		}
		wildcards := strings.Count(e.Pattern, "*")
		t.routes = append(t.routes, compiledRoute{
			pattern:      e.Pattern,
			target:       e.Target,
			re:           re,
			literalChars: len(e.Pattern) - wildcards,
			wildcards:    wildcards,
		})
	}
	return t, nil
}

// compileGlob turns a routes pattern — literal text plus `*` wildcards —
// into an anchored regular expression.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}

// Match returns the target of the most specific pattern matching path.
// Specificity ranks by literal (non-`*`) character count first, so an
// exact entry like "/b/d" always beats an equal-length wildcard entry
// like "/b/*"; a fewer-wildcards entry breaks ties between patterns with
// the same literal count; the entry that appeared first in the table
// breaks any remaining tie. The bool is false if no entry matches
// (including an empty table).
func (t *Table) Match(path string) (string, bool) {
	bestIdx := -1
	for i, r := range t.routes {
		if !r.re.MatchString(path) {
			continue
		}
		if bestIdx == -1 || moreSpecific(r, t.routes[bestIdx]) {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return "", false
	}
	return t.routes[bestIdx].target, true
}

// moreSpecific reports whether a should replace b as the current best match.
func moreSpecific(a, b compiledRoute) bool {
	if a.literalChars != b.literalChars {
		return a.literalChars > b.literalChars
	}
	return a.wildcards < b.wildcards
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return len(t.routes)
}
