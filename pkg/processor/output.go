package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xhad/chartdata/internal/models"
)

// EncodeJSON renders records as a compact JSON array without a trailing
// newline.
func EncodeJSON(records []models.SentenceRecord) ([]byte, error) {
	if records == nil {
		records = []models.SentenceRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteJSON writes records to path, replacing any existing file.
func WriteJSON(path string, records []models.SentenceRecord) error {
	data, err := EncodeJSON(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Histogram returns the share of sentences at each length. Bucket i holds
// sentences of i+1 tokens; the last bucket also takes everything longer.
func Histogram(counts []int, dim int) []float32 {
	hist := make([]float32, dim)
	if dim == 0 || len(counts) == 0 {
		return hist
	}
	for _, n := range counts {
		i := n - 1
		if i < 0 {
			i = 0
		}
		if i >= dim {
			i = dim - 1
		}
		hist[i]++
	}
	total := float32(len(counts))
	for i := range hist {
		hist[i] /= total
	}
	return hist
}
