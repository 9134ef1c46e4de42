package faqcorpus

import (
	"context"
	"fmt"
	"os"

	"github.com/yanqian/ai-supportdesk/internal/domain/faq"
)

// FileSource reads a YAML or JSON corpus from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) ([]faq.Entry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	return Parse(data, FormatFromPath(s.Path))
}

var _ Source = FileSource{}
