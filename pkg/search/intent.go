package search

import (
	"strings"
	"unicode"

	"thrx-be/internal/constant"
)

type Action string

const (
	ActionSearch Action = "SEARCH"
	ActionLocal  Action = "LOCAL"
)

var greetings = func() map[string]struct{} {
	m := make(map[string]struct{}, len(constant.GreetingVocabulary))
	for _, g := range constant.GreetingVocabulary {
		m[g] = struct{}{}
	}
	return m
}()

// Classify decides whether a turn is worth a web search. Only short
// greetings and acknowledgements stay local; everything else searches.
func Classify(query string) Action {
	q := strings.ToLower(strings.TrimSpace(query))
	tokens := strings.Fields(stripPunctuation(q))
	if len(tokens) == 0 || len(tokens) >= constant.GreetingTokenLimit {
		return ActionSearch
	}

	if isGreeting(strings.Join(tokens, " ")) {
		return ActionLocal
	}
	// "ok thanks", "hi hello"
	if len(tokens) > 1 {
		for _, tok := range tokens {
			if !isGreeting(tok) {
				return ActionSearch
			}
		}
		return ActionLocal
	}
	return ActionSearch
}

func isGreeting(s string) bool {
	_, ok := greetings[s]
	return ok
}

// stripPunctuation keeps letters, digits, underscore and whitespace.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}
