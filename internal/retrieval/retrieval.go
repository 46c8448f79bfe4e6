// Package retrieval finds the curated question closest to a user's message.
package retrieval

import (
	"faq-chatter/internal/knowledge"
	"faq-chatter/internal/similarity"
)

// Tokenizer is the part of tokenizer.Tokenizer the matcher needs.
type Tokenizer interface {
	Tokenize(text string) []string
}

type entry struct {
	knowledge.QuestionEntry
	rendered string
}

// Corpus is the read-only question set. Questions are tokenized once when
// the corpus is built; Match only tokenizes the input.
type Corpus struct {
	tok     Tokenizer
	entries []entry
}

// Match is the best scoring corpus entry for an input.
type Match struct {
	Entry knowledge.QuestionEntry
	Index int
	Score float64
}

func NewCorpus(tok Tokenizer, entries []knowledge.QuestionEntry) *Corpus {
	c := &Corpus{tok: tok, entries: make([]entry, 0, len(entries))}
	for _, e := range entries {
		c.entries = append(c.entries, entry{
			QuestionEntry: e,
			rendered:      similarity.Render(tok.Tokenize(e.Question)),
		})
	}
	return c
}

func (c *Corpus) Len() int { return len(c.entries) }

// Best scans the whole corpus and returns the entry with the highest score.
// On ties the earliest entry wins. ok is false only for an empty corpus.
func (c *Corpus) Best(input string) (m Match, ok bool) {
	rendered := similarity.Render(c.tok.Tokenize(input))
	m.Index = -1
	for i, e := range c.entries {
		score := similarity.Compare(rendered, e.rendered)
		if m.Index < 0 || score > m.Score {
			m = Match{Entry: e.QuestionEntry, Index: i, Score: score}
		}
	}
	return m, m.Index >= 0
}

// Match returns the best entry when its score is at least threshold.
func (c *Corpus) Match(input string, threshold float64) (Match, bool) {
	m, ok := c.Best(input)
	if !ok || m.Score < threshold {
		return m, false
	}
	return m, true
}
