package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xhad/chartdata/internal/models"
	"gopkg.in/yaml.v3"
)

type DatasetConfig struct {
	Hemisphere string `yaml:"hemisphere"`
	URL        string `yaml:"url"`
	FileName   string `yaml:"file_name"`
}

type BookConfig struct {
	FileName  string `yaml:"file_name"`
	SourceURL string `yaml:"source_url"`
}

type Config struct {
	SeaIce struct {
		OutputDir string          `yaml:"output_dir"`
		Datasets  []DatasetConfig `yaml:"datasets"`
	} `yaml:"seaice"`

	Sentences struct {
		InputDir      string       `yaml:"input_dir"`
		Output        string       `yaml:"output"`
		MinTokens     int          `yaml:"min_tokens"`
		ModelPath     string       `yaml:"model_path"`
		ModelURL      string       `yaml:"model_url"`
		ModelCacheDir string       `yaml:"model_cache_dir"`
		Books         []BookConfig `yaml:"books"`
	} `yaml:"sentences"`

	Fetcher struct {
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"`
	} `yaml:"fetcher"`

	Database struct {
		URL          string `yaml:"url"`
		HistogramDim int    `yaml:"histogram_dim"`
	} `yaml:"database"`

	UI struct {
		Progress *bool `yaml:"progress"`
	} `yaml:"ui"`
}

var defaultDatasets = []DatasetConfig{
	{
		Hemisphere: "south",
		URL:        "ftp://sidads.colorado.edu/DATASETS/NOAA/G02135/south/daily/data/S_seaice_extent_daily_v3.0.csv",
		FileName:   "data_south.csv",
	},
	{
		Hemisphere: "north",
		URL:        "ftp://sidads.colorado.edu/DATASETS/NOAA/G02135/north/daily/data/N_seaice_extent_daily_v3.0.csv",
		FileName:   "data_north.csv",
	},
}

var defaultBooks = []BookConfig{
	{FileName: "pg174.txt", SourceURL: "https://www.gutenberg.org/cache/epub/174/pg174.txt"},   // The Picture of Dorian Gray
	{FileName: "pg1260.txt", SourceURL: "https://www.gutenberg.org/cache/epub/1260/pg1260.txt"}, // Jane Eyre
	{FileName: "pg1400.txt", SourceURL: "https://www.gutenberg.org/cache/epub/1400/pg1400.txt"}, // Great Expectations
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"chartdata.yaml",
			"chartdata.yml",
			filepath.Join(os.Getenv("HOME"), ".config/chartdata/config.yaml"),
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.SeaIce.OutputDir == "" {
		config.SeaIce.OutputDir = "."
	}
	if len(config.SeaIce.Datasets) == 0 {
		config.SeaIce.Datasets = append([]DatasetConfig(nil), defaultDatasets...)
	}

	if config.Sentences.InputDir == "" {
		config.Sentences.InputDir = "."
	}
	if config.Sentences.Output == "" {
		config.Sentences.Output = "data.json"
	}
	if config.Sentences.MinTokens == 0 {
		config.Sentences.MinTokens = 3
	}
	if config.Sentences.ModelCacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			config.Sentences.ModelCacheDir = filepath.Join(dir, "chartdata", "punkt")
		} else {
			config.Sentences.ModelCacheDir = filepath.Join(os.TempDir(), "chartdata", "punkt")
		}
	}
	if len(config.Sentences.Books) == 0 {
		config.Sentences.Books = append([]BookConfig(nil), defaultBooks...)
	}

	if config.Fetcher.Timeout == 0 {
		config.Fetcher.Timeout = 60 * time.Second
	}
	if config.Fetcher.RateLimit == 0 {
		config.Fetcher.RateLimit = 1.0
	}

	if config.Database.HistogramDim == 0 {
		config.Database.HistogramDim = 48
	}

	if config.UI.Progress == nil {
		enabled := true
		config.UI.Progress = &enabled
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if outDir := os.Getenv("CHARTDATA_OUTPUT_DIR"); outDir != "" {
		config.SeaIce.OutputDir = outDir
	}
}

// Datasets returns the configured sea-ice datasets in run order.
func (c *Config) Datasets() []models.Dataset {
	datasets := make([]models.Dataset, 0, len(c.SeaIce.Datasets))
	for _, d := range c.SeaIce.Datasets {
		datasets = append(datasets, models.Dataset{
			Hemisphere: d.Hemisphere,
			URL:        d.URL,
			FileName:   d.FileName,
		})
	}
	return datasets
}

// Books returns the configured novels in output order.
func (c *Config) Books() []models.Book {
	books := make([]models.Book, 0, len(c.Sentences.Books))
	for _, b := range c.Sentences.Books {
		books = append(books, models.Book{
			FileName:  b.FileName,
			SourceURL: b.SourceURL,
		})
	}
	return books
}

func (c *Config) ProgressEnabled() bool {
	return c.UI.Progress == nil || *c.UI.Progress
}
