package detect

import "strings"

// defaultStopwords suppresses candidates whose normalized key is a common
// word that pattern families over-match: pronouns, articles, days, months,
// and high-frequency sentence starters. Extendable via WithStopwords.
var defaultStopwords = []string{
	// Pronouns and determiners
	"i", "we", "you", "he", "she", "it", "they", "them", "us", "me",
	"this", "that", "these", "those", "the", "a", "an",
	// Sentence starters and connectives
	"but", "and", "or", "so", "then", "when", "while", "after", "before",
	"however", "meanwhile", "later", "finally", "suddenly", "eventually",
	"once", "now", "next", "also", "although", "though", "because",
	"if", "as", "at", "in", "on", "to", "for", "with", "from", "by",
	"there", "here", "everyone", "everything", "nothing", "someone",
	"something", "nobody", "anyone",
	// Days and months
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
	"sunday", "january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
	// Session-log boilerplate
	"session", "notes", "recap", "summary", "chapter", "part",
	"yes", "no", "ok", "okay",
}

// leadingArticles are trimmed from the front of person/place surface forms
// so "The Silverwood Forest" and "Silverwood Forest" share one identity.
var leadingArticles = map[string]bool{
	"the": true,
	"a":   true,
	"an":  true,
}

func buildStoplist(extra []string) map[string]struct{} {
	list := make(map[string]struct{}, len(defaultStopwords)+len(extra))
	for _, w := range defaultStopwords {
		list[w] = struct{}{}
	}
	for _, w := range extra {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			list[w] = struct{}{}
		}
	}
	return list
}
