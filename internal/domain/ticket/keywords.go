package ticket

import (
	"regexp"
	"strings"
)

// KeywordMatcher finds resolution keywords as whole words, in any script.
type KeywordMatcher struct {
	keywords []string
	patterns []*regexp.Regexp
}

func NewKeywordMatcher(keywords []string) *KeywordMatcher {
	m := &KeywordMatcher{}
	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw == "" {
			continue
		}
		parts := strings.Fields(kw)
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		expr := `(?i)(?:^|[^\p{L}\p{N}_])` + strings.Join(parts, `\s+`) + `(?:$|[^\p{L}\p{N}_])`
		m.keywords = append(m.keywords, kw)
		m.patterns = append(m.patterns, regexp.MustCompile(expr))
	}
	return m
}

// Match returns the first keyword found in text.
func (m *KeywordMatcher) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for i, p := range m.patterns {
		if p.MatchString(text) {
			return m.keywords[i], true
		}
	}
	return "", false
}
