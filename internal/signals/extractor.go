// Package signals detects the linguistic features of a well-formed ask.
package signals

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	askPhrases = []string{
		"i want", "i need", "i would like", "i'd like", "i'm asking", "i am asking",
		"i request", "i expect", "i'm requesting", "i am requesting",
	}
	timelinePhrases = []string{
		"by ", "before ", "this week", "this month", "this quarter",
		"today", "tomorrow", "by eod", "by end of day",
	}
	boundaryPhrases = []string{
		"i won't", "i will not", "not acceptable", "that doesn't work", "that does not work",
		"i can't agree", "i cannot agree", "i'm not able to", "i am not able to",
	}
	reasonPhrases = []string{
		"because", "since ", "due to", "so that", "as ",
	}
)

// Flags are the five signals found in one user message.
type Flags struct {
	ExplicitAsk     bool `json:"has_explicit_ask"`
	AmountOrPercent bool `json:"has_amount_or_percent"`
	Timeline        bool `json:"has_timeline"`
	FirmBoundary    bool `json:"has_firm_boundary"`
	Reason          bool `json:"has_reason"`
}

// Count is the number of true flags.
func (f Flags) Count() int {
	n := 0
	for _, b := range []bool{f.ExplicitAsk, f.AmountOrPercent, f.Timeline, f.FirmBoundary, f.Reason} {
		if b {
			n++
		}
	}
	return n
}

func (f Flags) Any() bool {
	return f.Count() > 0
}

// Extract is pure: the same text always yields the same flags.
func Extract(text string) Flags {
	folded := fold(text)
	return Flags{
		ExplicitAsk:     containsAny(folded, askPhrases),
		AmountOrPercent: hasAmount(folded),
		Timeline:        containsAny(folded, timelinePhrases),
		FirmBoundary:    containsAny(folded, boundaryPhrases),
		Reason:          containsAny(folded, reasonPhrases),
	}
}

func fold(text string) string {
	text = strings.ToLower(text)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(text)
}

func hasAmount(s string) bool {
	for _, r := range s {
		if r == '%' || unicode.IsDigit(r) || unicode.Is(unicode.Sc, r) {
			return true
		}
	}
	return false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if containsAtWordStart(s, p) {
			return true
		}
	}
	return false
}

// containsAtWordStart reports whether phrase occurs in s where the preceding
// rune is not a letter or digit.
func containsAtWordStart(s, phrase string) bool {
	offset := 0
	for {
		i := strings.Index(s[offset:], phrase)
		if i < 0 {
			return false
		}
		at := offset + i
		if at == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(s[:at])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
		offset = at + 1
	}
}
