// Package resolver maps raw scraped theme labels onto catalog entries.
package resolver

import (
	"regexp"
	"strings"
)

var (
	bracketed  = regexp.MustCompile(`\[[^\]]*\]\s*`)
	openParen  = regexp.MustCompile(`\s*\(\s*`)
	closeParen = regexp.MustCompile(`\s*\)\s*`)
)

// Normalize reduces a theme label to its comparable form: lowercase, branch
// annotations like "[강남] " removed, whitespace around parentheses dropped,
// and everything outside Hangul, ASCII alphanumerics, and parentheses
// stripped. Raw labels and catalog titles go through the same rule so
// decoration noise on either side cancels out.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = bracketed.ReplaceAllString(s, "")
	s = openParen.ReplaceAllString(s, "(")
	s = closeParen.ReplaceAllString(s, ")")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if allowedRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= '가' && r <= '힣':
		return true
	case r == '(' || r == ')':
		return true
	}
	return false
}
