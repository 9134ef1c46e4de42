package faq

import (
	"strconv"
	"strings"
)

// FormatContext renders ranked results as numbered knowledge items for a prompt.
// The input order is kept and answers are never truncated.
func FormatContext(results []RankedResult) string {
	if len(results) == 0 {
		return ""
	}
	var builder strings.Builder
	for i, result := range results {
		if i > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(strconv.Itoa(i + 1))
		builder.WriteString(". ")
		builder.WriteString(result.Entry.Question)
		builder.WriteString(" → ")
		builder.WriteString(result.Entry.Answer)
	}
	return builder.String()
}
