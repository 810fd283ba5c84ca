package http

import (
	"regexp"
	"strings"
)

// segmentKind follows chi's matching priority within one path segment:
// static beats regexp, regexp beats a plain param, a catch-all comes last.
type segmentKind int

const (
	segmentStatic segmentKind = iota
	segmentRegexp
	segmentParam
	segmentCatchAll
)

type segment struct {
	kind segmentKind
	text string
	// re is set for a segment made of a single {name:regexp} param.
	re *regexp.Regexp
}

func parsePattern(pattern string) []segment {
	var segments []segment
	for _, part := range splitSegments(strings.TrimPrefix(pattern, "/")) {
		segments = append(segments, parseSegment(part))
	}
	return segments
}

// splitSegments splits on "/" outside of braces so regexps may contain slashes.
func splitSegments(path string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '/':
			if depth == 0 {
				parts = append(parts, path[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, path[start:])
}

func parseSegment(part string) segment {
	switch {
	case part == "*":
		return segment{kind: segmentCatchAll, text: part}
	case !strings.Contains(part, "{"):
		return segment{kind: segmentStatic, text: part}
	}

	if part[0] == '{' && closingBrace(part) == len(part)-1 {
		if _, expr, ok := strings.Cut(part[1:len(part)-1], ":"); ok {
			seg := segment{kind: segmentRegexp, text: part}
			if re, err := regexp.Compile("^(?:" + expr + ")$"); err == nil {
				seg.re = re
			}
			return seg
		}
		return segment{kind: segmentParam, text: part}
	}

	if strings.Contains(part, ":") {
		return segment{kind: segmentRegexp, text: part}
	}
	return segment{kind: segmentParam, text: part}
}

// closingBrace returns the index of the brace closing the one at s[0], or -1.
func closingBrace(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (s segment) dynamic() bool {
	return s.kind != segmentStatic
}

// matchesSame reports whether some path segment could match both a and b.
func (s segment) matchesSame(o segment) bool {
	switch {
	case s.kind == segmentStatic && o.kind == segmentStatic:
		return s.text == o.text
	case s.kind == segmentStatic && o.re != nil:
		return o.re.MatchString(s.text)
	case o.kind == segmentStatic && s.re != nil:
		return s.re.MatchString(o.text)
	default:
		return true
	}
}

func hasDynamic(segments []segment) bool {
	for _, s := range segments {
		if s.dynamic() {
			return true
		}
	}
	return false
}

// overlaps reports whether some request path could match both patterns.
func overlaps(a, b []segment) bool {
	for i := 0; ; i++ {
		if i == len(a) || i == len(b) {
			return len(a) == len(b)
		}
		if a[i].kind == segmentCatchAll || b[i].kind == segmentCatchAll {
			return true
		}
		if !a[i].matchesSame(b[i]) {
			return false
		}
	}
}

// shadows reports whether chi would route a path matched by both patterns to
// later even though earlier was registered first. chi decides at the first
// segment whose kinds differ; a fully static route is always matched before
// any parameterized one, which is also how declaration order resolves it.
func shadows(earlier, later []segment) bool {
	if !hasDynamic(earlier) || !hasDynamic(later) || !overlaps(earlier, later) {
		return false
	}
	for i := 0; i < len(earlier) && i < len(later); i++ {
		if earlier[i].kind != later[i].kind {
			return later[i].kind < earlier[i].kind
		}
	}
	return false
}
