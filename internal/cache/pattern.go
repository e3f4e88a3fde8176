package cache

import (
	"regexp"
	"strings"
	"sync"
)

// Pattern is a compiled glob: '*' matches any run of characters (including ':'),
// '?' matches exactly one. Everything else is literal.
type Pattern struct {
	raw     string
	literal string // prefix before the first wildcard
	re      *regexp.Regexp
}

var patternCache sync.Map // string -> *Pattern

// CompilePattern compiles a glob pattern. Compiled patterns are memoized.
func CompilePattern(glob string) *Pattern {
	if p, ok := patternCache.Load(glob); ok {
		return p.(*Pattern)
	}

	var b strings.Builder
	b.WriteString("^")
	literal := glob
	foundWildcard := false
	for i, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
			continue
		}
		if !foundWildcard {
			literal = glob[:i]
			foundWildcard = true
		}
	}
	b.WriteString("$")

	p := &Pattern{raw: glob, literal: literal, re: regexp.MustCompile(b.String())}
	patternCache.Store(glob, p)
	return p
}

// Match reports whether key matches the pattern.
func (p *Pattern) Match(key string) bool {
	if !strings.HasPrefix(key, p.literal) {
		return false
	}
	return p.re.MatchString(key)
}

// Namespace returns the first ':'-separated segment if the pattern pins it literally.
func (p *Pattern) Namespace() (string, bool) {
	i := strings.IndexByte(p.literal, ':')
	if i < 0 {
		return "", false
	}
	return p.literal[:i], true
}

func (p *Pattern) String() string { return p.raw }

// namespaceOf returns the first ':'-separated segment of a key.
func namespaceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
