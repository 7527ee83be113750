package stringutils

import (
	"regexp"
	"strings"
	"unicode"
)

var multiSpacePattern = regexp.MustCompile(`\s+`)

// Truncate cuts s to at most maxRunes runes. It never splits a multi-byte character.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == maxRunes {
			return s[:i]
		}
		count++
	}
	return s
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return len([]rune(s))
}

// CollapseWhitespace folds runs of whitespace (including newlines) into single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(s, " "))
}

// GenerateTitle builds a single-line title of at most maxRunes characters, cut on a
// word boundary when one is close enough to the limit.
func GenerateTitle(content string, maxRunes int) string {
	clean := CollapseWhitespace(content)
	if RuneLen(clean) <= maxRunes {
		return clean
	}

	truncated := Truncate(clean, maxRunes)
	if lastSpace := strings.LastIndexFunc(truncated, unicode.IsSpace); lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimRight(truncated, " .,!?-")
}
