package processor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"github.com/xhad/chartdata/internal/types"
	"go.uber.org/zap"
)

// PunktSplitter finds sentence boundaries with a pretrained punkt model.
type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewPunktSplitter builds a splitter from punkt training JSON. A nil
// training set selects the bundled English model.
func NewPunktSplitter(training []byte) (*PunktSplitter, error) {
	if training == nil {
		tokenizer, err := english.NewSentenceTokenizer(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load english punkt model: %w", err)
		}
		return &PunktSplitter{tokenizer: tokenizer}, nil
	}

	storage, err := sentences.LoadTraining(training)
	if err != nil {
		return nil, fmt.Errorf("failed to load punkt training data: %w", err)
	}
	return &PunktSplitter{tokenizer: sentences.NewSentenceTokenizer(storage)}, nil
}

// Split returns trimmed, non-empty sentence spans in text order.
func (s *PunktSplitter) Split(text string) []string {
	var spans []string
	for _, sentence := range s.tokenizer.Tokenize(text) {
		span := strings.TrimSpace(sentence.Text)
		if span == "" {
			continue
		}
		spans = append(spans, span)
	}
	return spans
}

type ModelConfig struct {
	Path     string
	URL      string
	CacheDir string
}

// LoadSplitter resolves the punkt model: a local training file, a training
// file downloaded once into CacheDir, or the bundled English model.
func LoadSplitter(ctx context.Context, config ModelConfig, fetcher types.Fetcher, log *zap.Logger) (*PunktSplitter, error) {
	if log == nil {
		log = zap.NewNop()
	}

	modelPath := config.Path
	if modelPath == "" && config.URL != "" {
		cached, err := cacheModel(ctx, config, fetcher, log)
		if err != nil {
			return nil, err
		}
		modelPath = cached
	}

	if modelPath == "" {
		log.Debug("using bundled english punkt model")
		return NewPunktSplitter(nil)
	}

	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read punkt model: %w", err)
	}
	log.Debug("using punkt model", zap.String("path", modelPath))
	return NewPunktSplitter(data)
}

func cacheModel(ctx context.Context, config ModelConfig, fetcher types.Fetcher, log *zap.Logger) (string, error) {
	u, err := url.Parse(config.URL)
	if err != nil {
		return "", fmt.Errorf("invalid model url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "punkt.json"
	}
	cached := filepath.Join(config.CacheDir, name)

	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if fetcher == nil {
		return "", errors.New("punkt model is not cached and no fetcher is configured")
	}

	log.Info("downloading punkt model", zap.String("url", config.URL))
	tmp, err := fetcher.Fetch(ctx, config.URL)
	if err != nil {
		return "", fmt.Errorf("failed to download punkt model: %w", err)
	}
	defer os.Remove(tmp)

	data, err := os.ReadFile(tmp)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(config.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model cache: %w", err)
	}
	if err := writeFileAtomic(cached, data); err != nil {
		return "", fmt.Errorf("failed to cache punkt model: %w", err)
	}
	return cached, nil
}

// writeFileAtomic writes data next to path and renames it into place, so a
// failed write never leaves a truncated file at path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
