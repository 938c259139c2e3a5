package segment

import (
	"regexp"
	"strconv"
	"strings"
)

type comparator int

const (
	cmpEqual comparator = iota
	cmpWildcard
	cmpRegex
	cmpGT
	cmpGTE
	cmpLT
	cmpLTE
)

// Longer prefixes first so "gte(" is not consumed by "gt(".
var comparatorPrefixes = []struct {
	prefix string
	cmp    comparator
}{
	{"wildcard(", cmpWildcard},
	{"regex(", cmpRegex},
	{"gte(", cmpGTE},
	{"gt(", cmpGT},
	{"lte(", cmpLTE},
	{"lt(", cmpLT},
}

// Match reports whether actual satisfies the DSL-encoded expected value.
// It is a total function: malformed patterns and unparsable versions resolve
// per comparator semantics instead of returning an error.
func Match(expected, actual string) bool {
	cmp, arg, wellFormed := splitComparator(expected)
	switch cmp {
	case cmpWildcard:
		if !wellFormed {
			return false
		}
		re, err := compileWildcard(arg)
		if err != nil {
			return false
		}
		return re.MatchString(actual)

	case cmpRegex:
		if !wellFormed {
			return false
		}
		re, err := regexp.Compile(arg)
		if err != nil {
			return false
		}
		return re.MatchString(actual)

	case cmpGT, cmpGTE, cmpLT, cmpLTE:
		return matchVersion(cmp, arg, wellFormed, actual)

	default:
		return equalValues(expected, actual)
	}
}

// splitComparator recognizes "name(arg)" forms. wellFormed reports whether
// the closing parenthesis was present; an unterminated comparator keeps its
// kind so the caller can apply that comparator's malformed-input behavior.
func splitComparator(expected string) (comparator, string, bool) {
	trimmed := strings.TrimSpace(expected)
	lower := strings.ToLower(trimmed)
	for _, entry := range comparatorPrefixes {
		if !strings.HasPrefix(lower, entry.prefix) {
			continue
		}
		arg := trimmed[len(entry.prefix):]
		if strings.HasSuffix(arg, ")") {
			return entry.cmp, arg[:len(arg)-1], true
		}
		return entry.cmp, arg, false
	}
	return cmpEqual, trimmed, true
}

// compileWildcard turns a glob pattern into an anchored, case-insensitive
// regular expression. Only "*" is special; everything else matches literally.
func compileWildcard(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.Compile("(?i)^" + strings.Join(parts, ".*") + "$")
}

// equalValues is trimmed, case-insensitive equality with numeric awareness:
// "123.0" equals "123".
func equalValues(expected, actual string) bool {
	e := strings.ToLower(strings.TrimSpace(expected))
	a := strings.ToLower(strings.TrimSpace(actual))
	if e == a {
		return true
	}
	ef, errE := strconv.ParseFloat(e, 64)
	af, errA := strconv.ParseFloat(a, 64)
	return errE == nil && errA == nil && ef == af
}

// matchVersion compares actual against the comparator argument as dotted
// numeric version tuples. Unparsable input on either side is treated as the
// smallest possible version: lt/lte match, gt/gte do not. The asymmetry is
// shared with the SDKs on other platforms and must not be normalized.
func matchVersion(cmp comparator, arg string, wellFormed bool, actual string) bool {
	failOpen := cmp == cmpLT || cmp == cmpLTE

	if !wellFormed {
		return failOpen
	}
	want, err := parseVersion(arg)
	if err != nil {
		return failOpen
	}
	have, err := parseVersion(actual)
	if err != nil {
		return failOpen
	}

	switch c := compareVersionSegments(have, want); cmp {
	case cmpGT:
		return c > 0
	case cmpGTE:
		return c >= 0
	case cmpLT:
		return c < 0
	default: // cmpLTE
		return c <= 0
	}
}

// parseVersion splits a dotted version into numeric segments. Empty or
// non-numeric segments are errors.
func parseVersion(s string) ([]int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, strconv.ErrSyntax
	}
	parts := strings.Split(trimmed, ".")
	segments := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil, strconv.ErrSyntax
		}
		segments[i] = n
	}
	return segments, nil
}

// compareVersionSegments compares segment-wise, right-padding the shorter
// side with zeros, so "1.10" > "1.1" and "1.0" == "1".
func compareVersionSegments(a, b []int) int {
	n := max(len(a), len(b))
	for i := range n {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		switch {
		case av > bv:
			return 1
		case av < bv:
			return -1
		}
	}
	return 0
}
