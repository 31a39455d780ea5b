package processor

import (
	"github.com/dlclark/regexp2"
)

// wordChar is any letter, number or underscore. It is spelled out instead of
// \w so that number forms such as ² and ½ count as word characters and
// combining marks do not.
const wordChar = `[\p{L}\p{N}_]`

// wordBoundary is \b over wordChar.
const wordBoundary = `(?:(?<=` + wordChar + `)(?!` + wordChar + `)|(?<!` + wordChar + `)(?=` + wordChar + `))`

// WordPattern matches runs of word characters and apostrophes. The lookahead
// refuses to start a token on a quote that is closed later in the sentence,
// so 'quoted' yields quoted rather than the wrapped form.
const WordPattern = `(?!'.*')` + wordBoundary + `[\p{L}\p{N}_']+` + wordBoundary

type WordTokenizer struct {
	re *regexp2.Regexp
}

// NewWordTokenizer compiles WordPattern. Matching has no timeout: a single
// long span is tokenized however long it takes.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{re: regexp2.MustCompile(WordPattern, regexp2.None)}
}

// Tokenize returns the tokens of sentence in order. Case is preserved.
func (t *WordTokenizer) Tokenize(sentence string) ([]string, error) {
	var tokens []string

	m, err := t.re.FindStringMatch(sentence)
	for m != nil && err == nil {
		tokens = append(tokens, m.String())
		m, err = t.re.FindNextMatch(m)
	}
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
