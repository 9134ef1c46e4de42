package faq

import (
	"encoding/json"
	"errors"
	"fmt"
)

// cachedRanking is the persisted cache record: entries and their scores as parallel lists.
type cachedRanking struct {
	FAQs   []Entry   `json:"faqs"`
	Scores []float64 `json:"scores"`
}

func encodeRanking(results []RankedResult) ([]byte, error) {
	payload := cachedRanking{
		FAQs:   make([]Entry, 0, len(results)),
		Scores: make([]float64, 0, len(results)),
	}
	for _, r := range results {
		payload.FAQs = append(payload.FAQs, r.Entry)
		payload.Scores = append(payload.Scores, r.Score)
	}
	return json.Marshal(payload)
}

func decodeRanking(raw []byte) ([]RankedResult, error) {
	var payload struct {
		FAQs   *[]Entry   `json:"faqs"`
		Scores *[]float64 `json:"scores"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode cached ranking: %w", err)
	}
	if payload.FAQs == nil || payload.Scores == nil {
		return nil, errors.New("cached ranking missing faqs or scores")
	}
	faqs, scores := *payload.FAQs, *payload.Scores
	if len(faqs) != len(scores) {
		return nil, fmt.Errorf("cached ranking length mismatch: faqs=%d scores=%d", len(faqs), len(scores))
	}
	out := make([]RankedResult, len(faqs))
	for i := range faqs {
		out[i] = RankedResult{Entry: faqs[i], Score: scores[i]}
	}
	return out, nil
}
