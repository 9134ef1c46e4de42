package util

import (
	"strings"
	"unicode/utf8"
)

// Preview shortens text for log output, cutting on a rune boundary and collapsing whitespace.
func Preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

// EstimateTokens assumes roughly four characters per token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return utf8.RuneCountInString(text)/4 + 1
}
