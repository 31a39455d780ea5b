package processor_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/chartdata/internal/models"
	"github.com/xhad/chartdata/pkg/processor"
)

// periodSplitter splits on ". " so record tests do not depend on the
// punkt model.
type periodSplitter struct{}

func (periodSplitter) Split(text string) []string {
	var spans []string
	for _, s := range strings.SplitAfter(text, ". ") {
		if s = strings.TrimSpace(s); s != "" {
			spans = append(spans, s)
		}
	}
	return spans
}

func TestLoadText(t *testing.T) {
	input := "\ufeffChapter 1\nHello world. This is fine.\n\n'quoted' word here.\n"

	text, err := processor.LoadText(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "Hello world. This is fine. 'quoted' word here. ", text)
}

func TestLoadTextLineRules(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"chapter any case", "CHAPTER IV\nchapter v\nChapters end\nkeep\n", "keep "},
		{"chapter mid line kept", "The chapter ends.\n", "The chapter ends. "},
		{"whitespace line kept", "a\n   \nb\n", "a     b "},
		{"windows newlines", "a\r\n\r\nb\r\n", "a b "},
		{"no final newline", "a\nb", "a b"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := processor.LoadText(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadTextInvalidUTF8(t *testing.T) {
	_, err := processor.LoadText(strings.NewReader("caf\xe9\n"))
	assert.ErrorIs(t, err, processor.ErrInvalidUTF8)
}

func TestLoadHTML(t *testing.T) {
	page := `<html><body>
		<h2>Chapter I</h2>
		<p>It was a dark
		and stormy night.</p>
		<p>The rain fell.</p>
	</body></html>`

	text, err := processor.LoadHTML(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "It was a dark and stormy night. The rain fell. ", text)
}

func TestWordTokenizer(t *testing.T) {
	tok := processor.NewWordTokenizer()

	tests := []struct {
		sentence string
		want     []string
	}{
		{"'quoted' word here.", []string{"quoted", "word", "here"}},
		{"I don't know, Mr. Gray.", []string{"I", "don't", "know", "Mr", "Gray"}},
		{"Hello world.", []string{"Hello", "world"}},
		{"— — —", nil},
		{"x² ½ café naïve", []string{"x²", "½", "café", "naïve"}},
		{"snake_case 42nd", []string{"snake_case", "42nd"}},
	}

	for _, tt := range tests {
		t.Run(tt.sentence, func(t *testing.T) {
			got, err := tok.Tokenize(tt.sentence)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "'quoted'")
		})
	}
}

func TestWordTokenizerLongSpan(t *testing.T) {
	tok := processor.NewWordTokenizer()

	span := strings.Repeat("it's a long night without a stop ", 20000)
	got, err := tok.Tokenize(span)
	require.NoError(t, err)
	assert.Len(t, got, 7*20000)
	assert.Equal(t, "it's", got[0])
}

func TestCountTokens(t *testing.T) {
	sentences := [][]string{
		{"Hello", "world"},
		{"This", "is", "fine"},
		{},
		{"a", "b", "c", "d", "e"},
		{"x"},
	}

	assert.Equal(t, []int{3, 5}, processor.CountTokens(sentences, 3))
	assert.Equal(t, []int{}, processor.CountTokens(nil, 3))
}

func TestProcessKeepsBookAndSentenceOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"),
		[]byte("Chapter 1\nOne two three. Four five. Six seven eight nine.\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"),
		[]byte("Short one. Tiny.\n"), 0644))

	var progress []int
	p, err := processor.NewWithConfig(processor.ProcessorConfig{
		InputDir: dir,
		Splitter: periodSplitter{},
		OnProgress: func(fileName string, done, total int) {
			if fileName == "b.txt" {
				progress = append(progress, done)
			}
		},
	})
	require.NoError(t, err)

	records, err := p.Process([]models.Book{{FileName: "b.txt"}, {FileName: "a.txt"}})
	require.NoError(t, err)

	assert.Equal(t, []models.SentenceRecord{
		{FileName: "b.txt", Sentences: []int{3, 4}},
		{FileName: "a.txt", Sentences: []int{}},
	}, records)
	assert.Equal(t, []int{0, 1, 2, 3}, progress)

	data, err := processor.EncodeJSON(records)
	require.NoError(t, err)
	assert.Equal(t, `[{"fileName":"b.txt","sentences":[3,4]},{"fileName":"a.txt","sentences":[]}]`, string(data))
}

func TestProcessMissingBook(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{
		InputDir: t.TempDir(),
		Splitter: periodSplitter{},
	})
	require.NoError(t, err)

	_, err = p.Process([]models.Book{{FileName: "pg174.txt"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pg174.txt")
}

func TestNewWithConfigRequiresSplitter(t *testing.T) {
	_, err := processor.NewWithConfig(processor.ProcessorConfig{})
	assert.Error(t, err)
}

func TestWriteJSONOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("old contents that are longer"), 0644))

	err := processor.WriteJSON(path, []models.SentenceRecord{{FileName: "pg1400.txt", Sentences: []int{12, 3}}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"fileName":"pg1400.txt","sentences":[12,3]}]`, string(data))
}

func TestPunktSplitter(t *testing.T) {
	splitter, err := processor.NewPunktSplitter(nil)
	require.NoError(t, err)

	text, err := processor.LoadText(strings.NewReader("Chapter 1\nHello world. This is fine.\n\n'quoted' word here.\n"))
	require.NoError(t, err)

	spans := splitter.Split(text)
	require.NotEmpty(t, spans)
	assert.Equal(t, "Hello world.", spans[0])
	for _, span := range spans {
		assert.NotContains(t, span, "Chapter")
		assert.Equal(t, strings.TrimSpace(span), span)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(spans, " ")))
}

func TestLoadSplitterUsesBundledModel(t *testing.T) {
	splitter, err := processor.LoadSplitter(context.Background(), processor.ModelConfig{}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, splitter.Split("It rained. We stayed in."), 2)
}

func TestLoadSplitterMissingModelFile(t *testing.T) {
	_, err := processor.LoadSplitter(context.Background(), processor.ModelConfig{
		Path: filepath.Join(t.TempDir(), "english.json"),
	}, nil, nil)
	assert.Error(t, err)
}

func TestHistogram(t *testing.T) {
	hist := processor.Histogram([]int{3, 3, 5, 40}, 8)
	require.Len(t, hist, 8)
	assert.InDelta(t, 0.5, hist[2], 1e-6)
	assert.InDelta(t, 0.25, hist[4], 1e-6)
	assert.InDelta(t, 0.25, hist[7], 1e-6)

	var sum float32
	for _, v := range hist {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6)

	assert.Equal(t, make([]float32, 4), processor.Histogram(nil, 4))
}

type countingFetcher struct {
	body  string
	calls int
}

func (f *countingFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	f.calls++
	tmp, err := os.CreateTemp("", "punkt-*.json")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	_, err = tmp.WriteString(f.body)
	return tmp.Name(), err
}

func TestLoadSplitterCachesDownloadedModel(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "punkt")
	fetcher := &countingFetcher{body: "{}"}
	config := processor.ModelConfig{
		URL:      "https://example.com/models/english.json",
		CacheDir: cacheDir,
	}

	_, err := processor.LoadSplitter(context.Background(), config, fetcher, nil)
	require.NoError(t, err)
	_, err = processor.LoadSplitter(context.Background(), config, fetcher, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	assert.FileExists(t, filepath.Join(cacheDir, "english.json"))
}

func TestLoadSplitterCacheLeavesNoPartialFiles(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "punkt")
	fetcher := &countingFetcher{body: "{}"}
	config := processor.ModelConfig{
		URL:      "https://example.com/models/english.json",
		CacheDir: cacheDir,
	}

	_, err := processor.LoadSplitter(context.Background(), config, fetcher, nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"english.json"}, names)

	data, err := os.ReadFile(filepath.Join(cacheDir, "english.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
