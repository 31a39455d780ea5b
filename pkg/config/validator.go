package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var supportedSchemes = map[string]bool{
	"ftp":   true,
	"http":  true,
	"https": true,
	"file":  true,
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate sea-ice datasets
	if len(c.SeaIce.Datasets) == 0 {
		errors = append(errors, ValidationError{
			Field:   "seaice.datasets",
			Message: "at least one dataset is required",
		})
	}

	seen := make(map[string]bool)
	for i, d := range c.SeaIce.Datasets {
		field := fmt.Sprintf("seaice.datasets[%d]", i)
		if msg := checkURL(d.URL); msg != "" {
			errors = append(errors, ValidationError{Field: field + ".url", Message: msg})
		}
		if strings.TrimSpace(d.FileName) == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".file_name",
				Message: "file_name is required",
			})
		} else if seen[d.FileName] {
			errors = append(errors, ValidationError{
				Field:   field + ".file_name",
				Message: fmt.Sprintf("duplicate output file: %s", d.FileName),
			})
		}
		seen[d.FileName] = true
	}

	// Validate books
	if len(c.Sentences.Books) == 0 {
		errors = append(errors, ValidationError{
			Field:   "sentences.books",
			Message: "at least one book is required",
		})
	}

	for i, b := range c.Sentences.Books {
		field := fmt.Sprintf("sentences.books[%d]", i)
		if strings.TrimSpace(b.FileName) == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".file_name",
				Message: "file_name is required",
			})
		}
		if b.SourceURL != "" {
			if msg := checkURL(b.SourceURL); msg != "" {
				errors = append(errors, ValidationError{Field: field + ".source_url", Message: msg})
			}
		}
	}

	if c.Sentences.Output == "" {
		errors = append(errors, ValidationError{
			Field:   "sentences.output",
			Message: "output path is required",
		})
	}

	if c.Sentences.MinTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "sentences.min_tokens",
			Message: "min_tokens must be positive",
		})
	}

	if c.Sentences.ModelURL != "" {
		if msg := checkURL(c.Sentences.ModelURL); msg != "" {
			errors = append(errors, ValidationError{Field: "sentences.model_url", Message: msg})
		}
	}

	// Validate fetcher config
	if c.Fetcher.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Fetcher.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.timeout",
			Message: "timeout cannot be negative",
		})
	}

	// Validate database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.HistogramDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.histogram_dim",
			Message: "histogram_dim must be positive",
		})
	}

	return errors
}

func checkURL(raw string) string {
	if raw == "" {
		return "url is required"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid url: %v", err)
	}
	if !supportedSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Sprintf("unsupported scheme %q", u.Scheme)
	}
	return ""
}
