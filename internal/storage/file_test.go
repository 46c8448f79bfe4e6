package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSink_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "logs", "log.jsonl")
	sink := NewFileSink(p)
	if err := sink.Initialize(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	r1 := Record{Timestamp: time.Unix(1, 0).UTC(), UserID: "U1", Question: "ตึกไหนเรียน", Response: "ตึก SC2 ค่ะ✨", Kind: RetrievalMatch}
	r2 := Record{Timestamp: time.Unix(2, 0).UTC(), UserID: "U2", Question: "foo", Response: "bar", Kind: ErrorFallback}
	if err := sink.Append(ctx, r1); err != nil {
		t.Fatalf("append1: %v", err)
	}
	if err := sink.Append(ctx, r2); err != nil {
		t.Fatalf("append2: %v", err)
	}

	records, err := sink.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("want 2, got %d", len(records))
	}
	for i, want := range []Record{r1, r2} {
		got := records[i]
		if !got.Timestamp.Equal(want.Timestamp) || got.UserID != want.UserID || got.Question != want.Question ||
			got.Response != want.Response || got.Kind != want.Kind {
			t.Fatalf("record %d: got %+v, want %+v", i, got, want)
		}
	}

	st, err := os.Stat(p)
	if err != nil || st.Size() == 0 {
		t.Fatalf("file not written")
	}
}

func TestFileSink_AppendBeforeInitIsNotFound(t *testing.T) {
	sink := NewFileSink(filepath.Join(t.TempDir(), "missing.jsonl"))
	err := sink.Append(context.Background(), Record{Question: "q"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	records, err := sink.Load(context.Background())
	if err != nil || len(records) != 0 {
		t.Fatalf("load of missing file: %v %v", records, err)
	}
}

func TestFileSink_InitializeTwice(t *testing.T) {
	ctx := context.Background()
	sink := NewFileSink(filepath.Join(t.TempDir(), "log.jsonl"))
	if err := sink.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := sink.Append(ctx, Record{Question: "q", Kind: GeneratedFallback}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Initialize(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	records, _ := sink.Load(ctx)
	if len(records) != 1 {
		t.Fatalf("initialize must not truncate, have %d records", len(records))
	}
}

func TestKindLabels(t *testing.T) {
	cases := map[Kind]string{
		RetrievalMatch:    "RAG Method",
		GeneratedFallback: "Generative AI",
		ErrorFallback:     "Fallback",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Fatalf("%d: %q", k, k.String())
		}
		back, err := ParseKind(want)
		if err != nil || back != k {
			t.Fatalf("ParseKind(%q) = %v, %v", want, back, err)
		}
	}
	if _, err := ParseKind("Other"); err == nil {
		t.Fatal("expected error for unknown label")
	}
}
