package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xhad/chartdata/internal/types"
	cfgPkg "github.com/xhad/chartdata/pkg/config"
	"github.com/xhad/chartdata/pkg/fetcher"
	"github.com/xhad/chartdata/pkg/processor"
	"github.com/xhad/chartdata/pkg/seaice"
	"github.com/xhad/chartdata/pkg/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool
	noProgress bool

	// seaice flags
	outputDir string

	// sentences flags
	inputDir   string
	outputPath string

	logger *zap.Logger
	config *cfgPkg.Config
)

var rootCmd = &cobra.Command{
	Use:   "chartdata",
	Short: "Prepare chart data files",
	Long: `chartdata builds the data files behind the charts:

  seaice     fetch NSIDC daily sea-ice extent and normalize it to year,month,day,extent
  sentences  count words per sentence in a set of novels and write a JSON summary`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		config, err = loadConfig()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var seaIceCmd = &cobra.Command{
	Use:   "seaice",
	Short: "Download and normalize the sea-ice extent datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSink(cmd.Context(), runSeaIce)
	},
}

var sentencesCmd = &cobra.Command{
	Use:   "sentences",
	Short: "Count words per sentence for each configured book",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSink(cmd.Context(), runSentences)
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the sea-ice and sentence pipelines in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSink(cmd.Context(), func(ctx context.Context, sink types.Sink) error {
			if err := runSeaIce(ctx, sink); err != nil {
				return err
			}
			return runSentences(ctx, sink)
		})
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <file-name>",
	Short: "List stored books with the closest sentence-length distribution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimilar(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")

	seaIceCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the normalized CSV files")
	allCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the normalized CSV files")

	for _, c := range []*cobra.Command{sentencesCmd, allCmd} {
		c.Flags().StringVar(&inputDir, "input-dir", "", "Directory holding the book texts")
		c.Flags().StringVar(&outputPath, "output", "", "Path of the JSON summary")
	}

	rootCmd.AddCommand(seaIceCmd, sentencesCmd, allCmd, similarCmd)
}

func loadConfig() (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Command line flags win over the config file
	if outputDir != "" {
		cfg.SeaIce.OutputDir = outputDir
	}
	if inputDir != "" {
		cfg.Sentences.InputDir = inputDir
	}
	if outputPath != "" {
		cfg.Sentences.Output = outputPath
	}
	if noProgress {
		disabled := false
		cfg.UI.Progress = &disabled
	}

	if verrs := cfg.Validate(); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func newFetcher() *fetcher.Fetcher {
	fc := fetcher.FetcherConfig{
		Timeout:   config.Fetcher.Timeout,
		RateLimit: config.Fetcher.RateLimit,
		Logger:    logger.Named("fetcher"),
	}
	if config.ProgressEnabled() {
		fc.NewProgress = func(rawURL string, size int64) io.Writer {
			return getBytesBar(size, "⬇ "+filepath.Base(rawURL))
		}
	}
	return fetcher.NewWithConfig(fc)
}

// withSink opens the database sink when one is configured and runs fn.
// fn receives a nil sink otherwise.
func withSink(ctx context.Context, fn func(context.Context, types.Sink) error) error {
	if config.Database.URL == "" {
		return fn(ctx, nil)
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}

func openStore(ctx context.Context) (*store.Store, error) {
	spinner := getSpinner(" Connecting to database...")
	defer spinner.Finish()

	s, err := store.NewWithConfig(ctx, store.StoreConfig{
		ConnString:   config.Database.URL,
		HistogramDim: config.Database.HistogramDim,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return s, nil
}

func runSeaIce(ctx context.Context, sink types.Sink) error {
	f := newFetcher()

	if err := os.MkdirAll(config.SeaIce.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	for _, ds := range config.Datasets() {
		color.Blue("\nFetching %s hemisphere extent\n", ds.Hemisphere)
		logger.Debug("fetching dataset", zap.String("hemisphere", ds.Hemisphere), zap.String("url", ds.URL))

		tmp, err := f.Fetch(ctx, ds.URL)
		if err != nil {
			return fmt.Errorf("failed to fetch %s dataset: %w", ds.Hemisphere, err)
		}

		dst := filepath.Join(config.SeaIce.OutputDir, ds.FileName)
		frame, err := seaice.NormalizeFile(tmp, dst)
		os.Remove(tmp)
		if err != nil {
			return fmt.Errorf("failed to normalize %s dataset: %w", ds.Hemisphere, err)
		}
		color.Green("✓ Wrote %d rows to %s\n", frame.Len(), dst)

		if sink != nil {
			rows, err := frame.Rows()
			if err != nil {
				return err
			}
			if err := sink.StoreExtent(ctx, ds.Hemisphere, rows); err != nil {
				return fmt.Errorf("failed to store %s dataset: %w", ds.Hemisphere, err)
			}
			color.Green("✓ Stored %d rows\n", len(rows))
		}
	}

	return nil
}

func runSentences(ctx context.Context, sink types.Sink) error {
	f := newFetcher()

	splitter, err := processor.LoadSplitter(ctx, processor.ModelConfig{
		Path:     config.Sentences.ModelPath,
		URL:      config.Sentences.ModelURL,
		CacheDir: config.Sentences.ModelCacheDir,
	}, f, logger.Named("punkt"))
	if err != nil {
		return err
	}

	books := config.Books()
	for _, book := range books {
		path := filepath.Join(config.Sentences.InputDir, book.FileName)
		if _, err := os.Stat(path); err == nil || book.SourceURL == "" {
			continue
		}
		color.Blue("\nDownloading %s\n", book.FileName)
		if err := f.FetchTo(ctx, book.SourceURL, path); err != nil {
			return fmt.Errorf("failed to download %s: %w", book.FileName, err)
		}
	}

	pc := processor.ProcessorConfig{
		InputDir:  config.Sentences.InputDir,
		MinTokens: config.Sentences.MinTokens,
		Splitter:  splitter,
		Logger:    logger.Named("processor"),
	}
	if config.ProgressEnabled() {
		pc.OnProgress = bookProgress(getProgressBar)
	}

	p, err := processor.NewWithConfig(pc)
	if err != nil {
		return err
	}

	color.Blue("\nTokenizing %d books\n", len(books))
	records, err := p.Process(books)
	if err != nil {
		return err
	}

	if err := processor.WriteJSON(config.Sentences.Output, records); err != nil {
		return err
	}
	color.Green("✓ Wrote %d books to %s\n", len(records), config.Sentences.Output)

	if sink != nil {
		if err := sink.StoreSentences(ctx, records); err != nil {
			return fmt.Errorf("failed to store sentence counts: %w", err)
		}
		color.Green("✓ Stored sentence counts\n")
	}

	return nil
}

// bookProgress draws one bar per book. A book with no sentence spans gets a
// debug line instead of a bar that would never complete.
func bookProgress(newBar func(total int, description string) *progressbar.ProgressBar) func(string, int, int) {
	var bar *progressbar.ProgressBar
	return func(fileName string, done, total int) {
		if done == 0 {
			bar = nil
			if total == 0 {
				logger.Debug("no sentences to tokenize", zap.String("file", fileName))
				return
			}
			bar = newBar(total, "📖 "+fileName)
			return
		}
		if bar == nil {
			return
		}

		if err := bar.Add(1); err != nil {
			logger.Debug("progress bar update failed", zap.String("file", fileName), zap.Error(err))
		}
		if done == total {
			if err := bar.Finish(); err != nil {
				logger.Debug("progress bar finish failed", zap.String("file", fileName), zap.Error(err))
			}
			fmt.Println()
		}
	}
}

func runSimilar(ctx context.Context, fileName string) error {
	if config.Database.URL == "" {
		return errors.New("database.url is not configured")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	matches, err := s.Similar(ctx, fileName, 0)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		color.Yellow("No stored books to compare with %s\n", fileName)
		return nil
	}

	color.Cyan("\nBooks closest to %s by sentence length\n", fileName)
	for _, m := range matches {
		fmt.Printf("  %-20s %.4f\n", m.FileName, m.Distance)
	}
	return nil
}
