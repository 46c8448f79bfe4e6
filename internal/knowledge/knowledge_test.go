package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLoadQuestions(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.json")
	body := `[{"question":"ตึกไหนเรียน","answer":"ตึก SC2 ค่ะ"},{"question":"ห้องสมุดอยู่ไหน","answer":"ชั้น 1 ค่ะ"}]`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := LoadQuestions(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 || entries[0].Answer != "ตึก SC2 ค่ะ" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestLoadQuestions_Failures(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadQuestions(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrCorpusLoad) {
		t.Fatalf("missing file: want ErrCorpusLoad, got %v", err)
	}
	bad := []string{
		`{"question":"x"}`,
		`[{"question":"x","answer":""}]`,
		`not json`,
	}
	for _, b := range bad {
		if _, err := ParseQuestions([]byte(b)); !errors.Is(err, ErrCorpusLoad) {
			t.Fatalf("%q: want ErrCorpusLoad, got %v", b, err)
		}
	}
}

func TestReference_RenderAndBound(t *testing.T) {
	ri, err := ParseReference([]byte(`{"faculty":{"name":"วิทยาศาสตร์และเทคโนโลยี","buildings":["SC1","SC2"]}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	full := ri.Render(0)
	if !strings.Contains(full, "\n  \"faculty\": {") {
		t.Fatalf("not indented: %s", full)
	}
	for _, n := range []int{1, 17, 30, 31, 32, 50} {
		cut := ri.Render(n)
		if len(cut) > n {
			t.Fatalf("Render(%d) returned %d bytes", n, len(cut))
		}
		if !utf8.ValidString(cut) {
			t.Fatalf("Render(%d) split a rune: %q", n, cut)
		}
	}
	if _, err := ParseReference([]byte("  ")); !errors.Is(err, ErrCorpusLoad) {
		t.Fatalf("blank reference should fail, got %v", err)
	}
}
