// Package knowledge loads the static question/answer table and the reference
// document that grounds generated answers. Both are read once at startup.
package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrCorpusLoad marks any failure to read or decode the static data files.
// The service must not start when it is returned.
var ErrCorpusLoad = errors.New("corpus load failed")

// QuestionEntry is one curated question with its canned answer.
type QuestionEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ReferenceInfo is an arbitrary JSON document injected verbatim into prompts.
type ReferenceInfo struct {
	raw json.RawMessage
}

// LoadQuestions reads a JSON array of QuestionEntry values.
func LoadQuestions(path string) ([]QuestionEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCorpusLoad, path, err)
	}
	return ParseQuestions(data)
}

// ParseQuestions decodes a JSON array of entries. Every entry needs a
// non-blank question and answer.
func ParseQuestions(data []byte) ([]QuestionEntry, error) {
	var entries []QuestionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode questions: %v", ErrCorpusLoad, err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty question or answer", ErrCorpusLoad, i)
		}
	}
	return entries, nil
}

// LoadReference reads the reference document.
func LoadReference(path string) (ReferenceInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ReferenceInfo{}, fmt.Errorf("%w: read %s: %v", ErrCorpusLoad, path, err)
	}
	return ParseReference(data)
}

// ParseReference accepts any valid JSON value.
func ParseReference(data []byte) (ReferenceInfo, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return ReferenceInfo{}, fmt.Errorf("%w: reference info is not valid JSON", ErrCorpusLoad)
	}
	return ReferenceInfo{raw: append(json.RawMessage(nil), data...)}, nil
}

// Render returns the document indented with two spaces, cut to at most
// maxBytes bytes on a rune boundary. maxBytes <= 0 means no limit.
func (ri ReferenceInfo) Render(maxBytes int) string {
	if len(ri.raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, ri.raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(ri.raw)
	}
	return Truncate(buf.String(), maxBytes)
}

// Truncate cuts s to at most maxBytes bytes without splitting a rune.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
