package bridge

import (
	"regexp"
	"strings"
)

// DefaultNoisePatterns matches the chatter three.js and loaders emit on
// every run: percentage-loaded progress lines and transient WebGL context
// notices. Cosmetic policy only.
var DefaultNoisePatterns = []string{
	`\d+% loaded`,
	`\d+(\.\d+)?% processed`,
	`THREE\.WebGLRenderer: Context Lost`,
	`THREE\.WebGLRenderer: Context Restored`,
	`\[Violation\]`,
}

// Filter suppresses known-noisy console lines before they reach the
// editor's visible log.
type Filter struct {
	patterns   []*regexp.Regexp
	substrings []string
}

// NewFilter compiles a deny list. Entries that fail to compile as regular
// expressions fall back to plain substring matching.
func NewFilter(deny []string) *Filter {
	f := &Filter{}
	for _, d := range deny {
		if d == "" {
			continue
		}
		if re, err := regexp.Compile(d); err == nil {
			f.patterns = append(f.patterns, re)
		} else {
			f.substrings = append(f.substrings, d)
		}
	}
	return f
}

// DefaultFilter returns a filter over DefaultNoisePatterns.
func DefaultFilter() *Filter {
	return NewFilter(DefaultNoisePatterns)
}

// Drop reports whether a console line should be suppressed.
func (f *Filter) Drop(line string) bool {
	if f == nil {
		return false
	}
	for _, re := range f.patterns {
		if re.MatchString(line) {
			return true
		}
	}
	for _, sub := range f.substrings {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}
