// Package intent detects conversational intents in inbound messages using
// keyword tables. Matching is case-insensitive and substring-based, so
// partial-word hits are accepted on purpose ("restaur" matches "restoration").
package intent

import "strings"

// Word lists are data, not code: a tenant-specific build can swap them
// without touching the matcher.
var (
	affirmativeWords = []string{
		"yes", "confirm", "confirmed", "can", "ok", "okay",
		"certainly", "sure", "that's it", "thats it", "right",
	}
	negativeWords = []string{
		"no", "change", "cancel", "wrong",
	}
	newBookingWords = []string{
		"schedule", "book", "appointment", "booking", "reserve", "slot",
	}
	rescheduleWords = []string{
		"reschedule", "rebook", "move my", "change my appointment",
		"another day", "different day",
	}
	infoWords = []string{
		"what is", "what's", "how does", "how much", "price", "cost",
		"tell me about", "more about", "explain", "information", "info",
	}
)

// serviceKeywords maps message fragments to catalog service codes. First
// match wins, scanned in a fixed order so ties are deterministic.
var serviceKeywords = []struct {
	keyword string
	code    string
}{
	{"whitening", "whitening"},
	{"whiten", "whitening"},
	{"bleach", "whitening"},
	{"cleaning", "cleaning"},
	{"clean", "cleaning"},
	{"botox", "botox"},
	{"filling", "resin_filling"},
	{"restor", "resin_filling"},
	{"resin", "resin_filling"},
	{"cavity", "resin_filling"},
	{"consult", "consultation"},
	{"evaluation", "consultation"},
	{"checkup", "consultation"},
	{"check-up", "consultation"},
}

// Matcher classifies message text against the keyword tables.
type Matcher struct{}

// NewMatcher returns a matcher with the default keyword tables.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// IsAffirmative reports whether the text contains a yes-style word. Callers
// must treat IsAffirmative && IsNegative (or neither) as unrecognized rather
// than coercing a guess.
func (m *Matcher) IsAffirmative(text string) bool {
	return containsAny(text, affirmativeWords)
}

// IsNegative reports whether the text contains a no-style word.
func (m *Matcher) IsNegative(text string) bool {
	return containsAny(text, negativeWords)
}

// WantsNewBooking reports whether the text expresses a scheduling intent.
func (m *Matcher) WantsNewBooking(text string) bool {
	return containsAny(text, newBookingWords)
}

// WantsReschedule reports whether the text asks to move an existing booking.
func (m *Matcher) WantsReschedule(text string) bool {
	return containsAny(text, rescheduleWords)
}

// WantsInfo reports whether the text seeks an explanation or price.
func (m *Matcher) WantsInfo(text string) bool {
	return containsAny(text, infoWords)
}

// ServiceCode scans the keyword table and returns the first matching catalog
// code, or "" when no keyword is present.
func (m *Matcher) ServiceCode(text string) string {
	lowered := strings.ToLower(text)
	for _, entry := range serviceKeywords {
		if strings.Contains(lowered, entry.keyword) {
			return entry.code
		}
	}
	return ""
}

// ServiceCodeFromTitle is ServiceCode applied to a stored reservation title,
// used to recover a best-guess service when seeding a reschedule.
func (m *Matcher) ServiceCodeFromTitle(title string) string {
	return m.ServiceCode(title)
}

func containsAny(text string, words []string) bool {
	lowered := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}
