package models

type Book struct {
	FileName  string
	SourceURL string
}

// SentenceRecord holds the word count of every kept sentence of one book,
// in the order the sentences appear in the text.
type SentenceRecord struct {
	FileName  string `json:"fileName"`
	Sentences []int  `json:"sentences"`
}
