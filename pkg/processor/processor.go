package processor

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/xhad/chartdata/internal/models"
	"github.com/xhad/chartdata/internal/types"
	"go.uber.org/zap"
)

type ProcessorConfig struct {
	InputDir  string
	MinTokens int
	Splitter  types.SentenceSplitter
	Tokenizer types.Tokenizer
	Logger    *zap.Logger
	// OnProgress is called with done=0 before a book's sentences are
	// tokenized and again after each sentence.
	OnProgress func(fileName string, done, total int)
}

type Processor struct {
	config ProcessorConfig
	log    *zap.Logger
}

func NewWithConfig(config ProcessorConfig) (*Processor, error) {
	if config.Splitter == nil {
		return nil, errors.New("a sentence splitter is required")
	}
	if config.Tokenizer == nil {
		config.Tokenizer = NewWordTokenizer()
	}
	if config.MinTokens == 0 {
		config.MinTokens = 3
	}
	if config.InputDir == "" {
		config.InputDir = "."
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Processor{
		config: config,
		log:    log,
	}, nil
}

// Process loads every book in order and returns one record per book.
func (p *Processor) Process(books []models.Book) ([]models.SentenceRecord, error) {
	records := make([]models.SentenceRecord, 0, len(books))

	for _, book := range books {
		text, err := LoadFile(filepath.Join(p.config.InputDir, book.FileName))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", book.FileName, err)
		}

		record, err := p.ProcessText(book.FileName, text)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// ProcessText splits text into sentences and keeps the token count of each
// sentence long enough to be charted.
func (p *Processor) ProcessText(fileName, text string) (models.SentenceRecord, error) {
	spans := p.config.Splitter.Split(text)
	p.progress(fileName, 0, len(spans))

	tokenized := make([][]string, 0, len(spans))
	for i, span := range spans {
		tokens, err := p.config.Tokenizer.Tokenize(span)
		if err != nil {
			return models.SentenceRecord{}, fmt.Errorf("%s: sentence %d: %w", fileName, i, err)
		}
		tokenized = append(tokenized, tokens)
		p.progress(fileName, i+1, len(spans))
	}

	counts := CountTokens(tokenized, p.config.MinTokens)
	p.log.Debug("processed book",
		zap.String("file", fileName),
		zap.Int("sentences", len(spans)),
		zap.Int("kept", len(counts)))

	return models.SentenceRecord{
		FileName:  fileName,
		Sentences: counts,
	}, nil
}

func (p *Processor) progress(fileName string, done, total int) {
	if p.config.OnProgress != nil {
		p.config.OnProgress(fileName, done, total)
	}
}

// CountTokens replaces each sentence with its token count, dropping
// sentences shorter than minTokens. Order is preserved and the result is
// never nil.
func CountTokens(sentences [][]string, minTokens int) []int {
	counts := make([]int, 0, len(sentences))
	for _, tokens := range sentences {
		if len(tokens) >= minTokens {
			counts = append(counts, len(tokens))
		}
	}
	return counts
}
