package types

import (
	"context"

	"github.com/xhad/chartdata/internal/models"
)

// Core interfaces
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type SentenceSplitter interface {
	Split(text string) []string
}

type Tokenizer interface {
	Tokenize(sentence string) ([]string, error)
}

type Sink interface {
	StoreExtent(ctx context.Context, hemisphere string, rows []models.ExtentRow) error
	StoreSentences(ctx context.Context, records []models.SentenceRecord) error
	Close()
}
