// Package formatter applies the persona's cosmetic decorations to replies.
package formatter

import "strings"

// Rule appends Marker after every occurrence of Word.
type Rule struct {
	Word   string
	Marker string
}

type Formatter struct {
	rules []Rule
}

func New(rules ...Rule) *Formatter {
	return &Formatter{rules: rules}
}

// Default decorates the mascot's name with 😊 and the polite particle ค่ะ with ✨.
func Default(mascot string) *Formatter {
	return New(
		Rule{Word: mascot, Marker: "😊"},
		Rule{Word: "ค่ะ", Marker: "✨"},
	)
}

// Format applies every rule. Occurrences already followed by their marker
// are left alone, so formatting a formatted reply changes nothing.
func (f *Formatter) Format(text string) string {
	for _, r := range f.rules {
		text = decorate(text, r)
	}
	return text
}

func decorate(text string, r Rule) string {
	if r.Word == "" || r.Marker == "" || !strings.Contains(text, r.Word) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8*len(r.Marker))
	rest := text
	for {
		i := strings.Index(rest, r.Word)
		if i < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := i + len(r.Word)
		b.WriteString(rest[:end])
		rest = rest[end:]
		if !strings.HasPrefix(rest, r.Marker) {
			b.WriteString(r.Marker)
		}
	}
}
