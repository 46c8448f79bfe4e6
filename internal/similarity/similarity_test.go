package similarity

import (
	"math"
	"testing"
)

var samples = [][]string{
	nil,
	{},
	{"ก"},
	{"ตึก", "ไหน", "เรียน"},
	{"ตึก", "ไหน", "เรียน", "อ่า"},
	{"สวัสดี", "ครับ"},
	{"night"},
	{"nacht"},
	{"a", "a", "a"},
}

func TestScore_IdentityIsOne(t *testing.T) {
	for _, s := range samples {
		if got := Score(s, s); got != 1 {
			t.Fatalf("Score(%q, %q) = %v, want 1", s, s, got)
		}
	}
}

func TestScore_Symmetric(t *testing.T) {
	for _, a := range samples {
		for _, b := range samples {
			if Score(a, b) != Score(b, a) {
				t.Fatalf("asymmetric for %q / %q: %v vs %v", a, b, Score(a, b), Score(b, a))
			}
		}
	}
}

func TestScore_EmptyBoundary(t *testing.T) {
	if got := Score(nil, []string{"ตึก"}); got != 0 {
		t.Fatalf("empty vs non-empty = %v, want 0", got)
	}
	if got := Score([]string{}, nil); got != 1 {
		t.Fatalf("empty vs empty = %v, want 1", got)
	}
	if got := Score(nil, []string{""}); got != 0 {
		t.Fatalf("empty vs sequence of one empty token = %v, want 0", got)
	}
	if got := Score([]string{""}, []string{}); got != 0 {
		t.Fatalf("sequence of one empty token vs empty = %v, want 0", got)
	}
}

func TestScore_Range(t *testing.T) {
	for _, a := range samples {
		for _, b := range samples {
			s := Score(a, b)
			if s < 0 || s > 1 {
				t.Fatalf("score out of range for %q / %q: %v", a, b, s)
			}
		}
	}
}

func TestScore_KnownValues(t *testing.T) {
	q := []string{"ตึก", "ไหน", "เรียน"}
	in := []string{"ตึก", "ไหน", "เรียน", "อ่า"}
	// 13 and 17 runes once joined; all 12 bigrams of q are shared.
	want := 24.0 / 28.0
	if got := Score(q, in); math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := Score(q, []string{"สวัสดี", "ครับ"}); got != 0 {
		t.Fatalf("disjoint score = %v, want 0", got)
	}
	// Classic Dice example: "ni","ig","gh","ht" vs "na","ac","ch","ht".
	if got := Compare("night", "nacht"); got != 0.25 {
		t.Fatalf("night/nacht = %v, want 0.25", got)
	}
}

func TestCompare_IgnoresWhitespace(t *testing.T) {
	if got := Compare("ตึก ไหน", "ตึกไหน"); got != 1 {
		t.Fatalf("got %v, want 1", got)
	}
}
