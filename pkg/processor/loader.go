package processor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	ErrInvalidUTF8 = errors.New("text is not valid UTF-8")
)

const chapterPrefix = "chapter"

// LoadText reads a plain-text book and joins its lines into one string.
// Empty lines and lines starting with "chapter" (any case) are dropped;
// every other line has its terminator replaced by a single space.
func LoadText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return joinLines(string(data)), nil
}

// LoadHTML extracts the block-level text of an HTML edition, one line per
// paragraph or heading, and joins it the same way LoadText does.
func LoadHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var b strings.Builder
	doc.Find("h1, h2, h3, h4, h5, h6, p, pre").Each(func(_ int, s *goquery.Selection) {
		line := strings.Join(strings.Fields(s.Text()), " ")
		b.WriteString(line)
		b.WriteByte('\n')
	})

	return joinLines(b.String()), nil
}

// LoadFile picks the loader from the file extension.
func LoadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return LoadHTML(f)
	default:
		text, err := LoadText(f)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		return text, nil
	}
}

func joinLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" || line == "\n" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), chapterPrefix) {
			continue
		}
		b.WriteString(strings.Replace(line, "\n", " ", 1))
	}
	return b.String()
}
