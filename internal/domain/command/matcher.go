package command

import (
	"strings"
	"unicode"

	"jan-server/services/helpdesk-api/internal/domain/participant"
)

const slashCommand = "/ticket"

// Matches reports whether text is a ticket command: "/ticket" (optionally addressed as
// "/ticket@bot"), one of the configured phrases on its own, or "@bot <phrase>". When
// botUsername is empty any @-address is accepted. Matching is case-insensitive and
// ignores trailing punctuation.
func Matches(text, botUsername string, phrases []string) bool {
	t := normalize(text)
	if t == "" {
		return false
	}
	bot := participant.NormalizeUsername(botUsername)

	if t == slashCommand {
		return true
	}
	if rest, ok := strings.CutPrefix(t, slashCommand+"@"); ok {
		return addressedTo(rest, bot)
	}

	if strings.HasPrefix(t, "@") {
		mention, rest, found := strings.Cut(t, " ")
		if !found || !addressedTo(strings.TrimPrefix(mention, "@"), bot) {
			return false
		}
		t = normalize(rest)
		if t == slashCommand {
			return true
		}
	}

	for _, p := range phrases {
		if t == normalize(p) {
			return true
		}
	}
	return false
}

func addressedTo(name, bot string) bool {
	name = participant.NormalizeUsername(name)
	if name == "" {
		return false
	}
	return bot == "" || name == bot
}

func normalize(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '@' && r != '/'
	})
}
