package chat

import (
	"strings"
	"unicode"
)

var greetingPatterns = []string{
	"hi", "hello", "hey", "greetings", "good morning", "good afternoon",
	"good evening", "what's up", "howdy", "sup", "hiya", "morning",
	"afternoon", "evening",
}

var acknowledgementPatterns = []string{
	"thanks", "thank you", "thank", "ty", "thx", "appreciate it",
	"ok", "okay", "got it", "understood", "cool", "nice", "good",
	"bye", "goodbye", "see you", "later", "have a good day",
}

// isGreeting reports whether a short message is only saying hello.
func isGreeting(message string) bool {
	return matchesShort(message, 3, greetingPatterns)
}

// isAcknowledgement reports whether a short message needs no FAQ lookup.
func isAcknowledgement(message string) bool {
	return matchesShort(message, 4, acknowledgementPatterns)
}

// matchesShort checks whole-word phrase matches so "hi" does not match "shipping".
func matchesShort(message string, maxWords int, patterns []string) bool {
	words := strings.Fields(normalize(message))
	if len(words) == 0 || len(words) > maxWords {
		return false
	}
	padded := " " + strings.Join(words, " ") + " "
	for _, pattern := range patterns {
		if strings.Contains(padded, " "+pattern+" ") {
			return true
		}
	}
	return false
}

// normalize lowercases and strips punctuation other than apostrophes.
func normalize(text string) string {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
