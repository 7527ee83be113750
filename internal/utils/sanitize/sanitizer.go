package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"jan-server/services/helpdesk-api/internal/utils/stringutils"
)

// Level controls how much chat content reaches the logs.
type Level string

const (
	// LevelNone redacts message text entirely
	LevelNone Level = "none"
	// LevelHashed keeps text but hashes contact details found in it
	LevelHashed Level = "hashed"
	// LevelFull logs text as-is
	LevelFull Level = "full"
)

const previewRunes = 120

// ParseLevel returns the level for s, falling back to hashed.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelNone:
		return LevelNone
	case LevelFull:
		return LevelFull
	default:
		return LevelHashed
	}
}

// Sanitizer scrubs message text and sender names before they are logged.
type Sanitizer struct {
	level Level
	salt  string

	emailPattern *regexp.Regexp
	phonePattern *regexp.Regexp
	cardPattern  *regexp.Regexp
	tokenPattern *regexp.Regexp
}

// NewSanitizer creates a sanitizer; salt keeps hashes stable per deployment.
func NewSanitizer(level Level, salt string) *Sanitizer {
	return &Sanitizer{
		level:        level,
		salt:         salt,
		emailPattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		phonePattern: regexp.MustCompile(`\+?\d[\d\s().-]{8,}\d`),
		cardPattern:  regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
		tokenPattern: regexp.MustCompile(`\b\d{6,}:[A-Za-z0-9_-]{30,}\b`),
	}
}

// Text returns a log-safe, shortened rendition of message text.
func (s *Sanitizer) Text(input string) string {
	if input == "" {
		return ""
	}
	switch s.level {
	case LevelNone:
		return "[REDACTED]"
	case LevelFull:
		return stringutils.Truncate(input, previewRunes)
	default:
		return stringutils.Truncate(s.hashContacts(input), previewRunes)
	}
}

// Name sanitizes a sender or channel display name.
func (s *Sanitizer) Name(name string) string {
	if name == "" {
		return ""
	}
	switch s.level {
	case LevelNone:
		return "[REDACTED]"
	case LevelFull:
		return name
	default:
		return s.hash(name)
	}
}

func (s *Sanitizer) hashContacts(input string) string {
	result := s.tokenPattern.ReplaceAllString(input, "[TOKEN:REDACTED]")
	result = s.cardPattern.ReplaceAllString(result, "[CC:REDACTED]")
	result = s.emailPattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[EMAIL:%s]", s.hash(match))
	})
	result = s.phonePattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[PHONE:%s]", s.hash(match))
	})
	return result
}

// hash returns the first 8 hex chars of a salted SHA-256.
func (s *Sanitizer) hash(data string) string {
	h := sha256.New()
	h.Write([]byte(data + s.salt))
	return hex.EncodeToString(h.Sum(nil))[:8]
}
