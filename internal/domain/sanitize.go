package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNameBytes bounds a single path component on common filesystems.
const MaxNameBytes = 255

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\n\r\t]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Sanitize makes a title safe for tags and file names.
func Sanitize(name string) string {
	s := invalidChars.ReplaceAllString(name, " ")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	if s == "" {
		return "untitled"
	}
	return s
}

// Truncate cuts s to at most maxBytes bytes without splitting a rune.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}
