// Package tokenizer segments Thai text, which has no spaces between words,
// into dictionary words using maximal matching. Runs of other scripts are
// split on whitespace and kept as single lower-cased tokens.
package tokenizer

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

//go:embed words.txt
var defaultWords string

type node struct {
	children map[rune]*node
	word     bool
}

// Tokenizer is immutable after construction and safe for concurrent use.
type Tokenizer struct {
	root  *node
	words int
}

// New builds a tokenizer over the given words. Blank entries are skipped.
func New(words []string) *Tokenizer {
	t := &Tokenizer{root: &node{children: make(map[rune]*node)}}
	for _, w := range words {
		t.insert(w)
	}
	return t
}

// Default builds a tokenizer over the embedded dictionary plus extra words.
func Default(extra ...string) *Tokenizer {
	return New(append(DefaultWords(), extra...))
}

// DefaultWords returns the embedded dictionary.
func DefaultWords() []string {
	words, _ := ReadWords(strings.NewReader(defaultWords))
	return words
}

// ReadWords reads one word per line. Empty lines and lines starting with '#'
// are ignored.
func ReadWords(r io.Reader) ([]string, error) {
	var out []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan words: %w", err)
	}
	return out, nil
}

// LoadWords reads a word list file.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	return ReadWords(f)
}

// Size returns the number of distinct dictionary words.
func (t *Tokenizer) Size() int { return t.words }

func (t *Tokenizer) insert(word string) {
	word = strings.TrimSpace(word)
	if word == "" {
		return
	}
	n := t.root
	for _, r := range word {
		next, ok := n.children[r]
		if !ok {
			next = &node{children: make(map[rune]*node)}
			n.children[r] = next
		}
		n = next
	}
	if !n.word {
		n.word = true
		t.words++
	}
}

// Tokenize splits text into word-like units. Whitespace is dropped, Thai runs
// are segmented against the dictionary, letter/digit runs of other scripts
// become one lower-cased token and every other rune stands alone.
func (t *Tokenizer) Tokenize(text string) []string {
	rs := []rune(text)
	out := make([]string, 0, len(rs)/2+1)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isThaiLetter(r):
			j := i
			for j < len(rs) && isThaiLetter(rs[j]) {
				j++
			}
			out = append(out, t.segment(rs[i:j])...)
			i = j
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j])) && !isThaiLetter(rs[j]) {
				j++
			}
			out = append(out, strings.ToLower(string(rs[i:j])))
			i = j
		default:
			out = append(out, string(r))
			i++
		}
	}
	return out
}

// path is the cheapest segmentation of the suffix starting at a position:
// fewest unknown clusters, then fewest tokens, then the longest first token.
type path struct {
	unknown int
	tokens  int
	next    int
	known   bool
}

func (p path) better(o path) bool {
	if p.unknown != o.unknown {
		return p.unknown < o.unknown
	}
	if p.tokens != o.tokens {
		return p.tokens < o.tokens
	}
	return p.next > o.next
}

func (t *Tokenizer) segment(rs []rune) []string {
	n := len(rs)
	bound := clusterBounds(rs)

	best := make([]path, n+1)
	best[n] = path{next: n}
	for i := n - 1; i >= 0; i-- {
		if !bound[i] {
			continue
		}
		k := i + 1
		for !bound[k] {
			k++
		}
		cur := path{unknown: best[k].unknown + 1, tokens: best[k].tokens + 1, next: k}

		nd := t.root
		for j := i; j < n; j++ {
			nd = nd.children[rs[j]]
			if nd == nil {
				break
			}
			if !nd.word || !bound[j+1] {
				continue
			}
			cand := path{unknown: best[j+1].unknown, tokens: best[j+1].tokens + 1, next: j + 1, known: true}
			if cand.better(cur) {
				cur = cand
			}
		}
		best[i] = cur
	}

	var out []string
	var pending []rune
	for i := 0; i < n; {
		p := best[i]
		if p.known {
			if len(pending) > 0 {
				out = append(out, string(pending))
				pending = pending[:0]
			}
			out = append(out, string(rs[i:p.next]))
		} else {
			pending = append(pending, rs[i:p.next]...)
		}
		i = p.next
	}
	if len(pending) > 0 {
		out = append(out, string(pending))
	}
	return out
}

// clusterBounds marks positions where a token may begin or end. A cluster is
// an optional leading vowel, one base character and every following mark, so
// no word boundary ever separates a consonant from its vowels or tone marks.
func clusterBounds(rs []rune) []bool {
	n := len(rs)
	b := make([]bool, n+1)
	for i := 0; i < n; {
		b[i] = true
		j := i
		if isLeadingVowel(rs[j]) && j+1 < n {
			j++
		}
		j++
		for j < n && isFollowingMark(rs[j]) {
			j++
		}
		i = j
	}
	b[n] = true
	return b
}

func isThaiLetter(r rune) bool { return r >= 0x0E01 && r <= 0x0E4F }

func isLeadingVowel(r rune) bool { return r >= 0x0E40 && r <= 0x0E44 }

func isFollowingMark(r rune) bool {
	switch {
	case r == 0x0E30, r == 0x0E31, r == 0x0E32, r == 0x0E33, r == 0x0E45:
		return true
	case r >= 0x0E34 && r <= 0x0E3A:
		return true
	case r >= 0x0E47 && r <= 0x0E4E:
		return true
	}
	return false
}
