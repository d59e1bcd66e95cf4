// Package chunker splits document text into overlapping passages for embedding.
package chunker

import (
	"fmt"
	"strings"
)

// Split cuts text into passages of at most size characters, each overlapping
// the previous one by roughly overlap characters. Cut points prefer the last
// whitespace inside the window over a hard character cut. The final passage
// may be shorter than size. Empty input yields no passages.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap (%d) must be non-negative and smaller than chunk size (%d)", overlap, size)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var passages []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			passages = append(passages, text[start:])
			break
		}

		cut := end
		if i := strings.LastIndexAny(text[start:end], " \t\n"); i > 0 {
			cut = start + i
		}
		passages = append(passages, text[start:cut])

		next := cut - overlap
		if next <= start {
			// Guarantee forward progress when the window shrank below the overlap.
			next = start + 1
		}
		start = next
	}

	return passages, nil
}
