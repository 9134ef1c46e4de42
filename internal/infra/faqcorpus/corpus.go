package faqcorpus

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

//go:embed default.yaml
var defaultCorpus []byte

// Source yields the FAQ entries to seed.
type Source interface {
	Load(ctx context.Context) ([]faq.Entry, error)
}

// Format selects the corpus decoder.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

type document struct {
	FAQs []record `yaml:"faqs" json:"faqs"`
}

type record struct {
	Category string `yaml:"category" json:"category"`
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Parse decodes a corpus. Both a {"faqs": [...]} document and a bare list are accepted.
func Parse(data []byte, format Format) ([]faq.Entry, error) {
	var (
		doc  document
		list []record
	)
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			if listErr := json.Unmarshal(data, &list); listErr != nil {
				return nil, fmt.Errorf("decode json corpus: %w", err)
			}
			doc.FAQs = list
		}
	case FormatYAML, "":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			if listErr := yaml.Unmarshal(data, &list); listErr != nil {
				return nil, fmt.Errorf("decode yaml corpus: %w", err)
			}
			doc.FAQs = list
		}
	default:
		return nil, fmt.Errorf("unsupported corpus format %q", format)
	}
	if len(doc.FAQs) == 0 {
		return nil, errors.New("corpus has no faqs")
	}
	entries := make([]faq.Entry, 0, len(doc.FAQs))
	for _, r := range doc.FAQs {
		entries = append(entries, faq.Entry{
			Category: strings.TrimSpace(r.Category),
			Question: strings.TrimSpace(r.Question),
			Answer:   strings.TrimSpace(r.Answer),
		})
	}
	return entries, nil
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// DefaultSource serves the built-in e-commerce FAQ corpus.
type DefaultSource struct{}

func (DefaultSource) Load(context.Context) ([]faq.Entry, error) {
	return Parse(defaultCorpus, FormatYAML)
}

var _ Source = DefaultSource{}

// Resolve picks the corpus source: an object when one is configured, then a file, then the built-in corpus.
func Resolve(path string, object ObjectConfig, logger *slog.Logger) (Source, error) {
	if object.Bucket != "" && object.Key != "" {
		return NewObjectSource(object, logger)
	}
	if strings.TrimSpace(path) != "" {
		return FileSource{Path: path}, nil
	}
	return DefaultSource{}, nil
}
