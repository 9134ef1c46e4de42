package chat

import (
	"context"
	"strings"
)

var defaultSuggestions = []string{
	"What is your return policy?",
	"How can you help me?",
	"What are your shipping options?",
	"Tell me about your products",
}

// Suggestions offers the most asked questions, padded with defaults.
func (s *service) Suggestions(ctx context.Context) (SuggestionsResponse, error) {
	limit := s.cfg.SuggestionLimit
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	add := func(text string) {
		key := normalize(text)
		if key == "" || len(out) >= limit {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(text))
	}

	if s.tracker != nil {
		trending, err := s.tracker.TopQueries(ctx, limit)
		if err != nil {
			s.logger.Warn("failed to load trending queries", "error", err)
		}
		for _, item := range trending {
			add(item.Query)
		}
	}
	for _, text := range defaultSuggestions {
		add(text)
	}
	return SuggestionsResponse{Suggestions: out}, nil
}
