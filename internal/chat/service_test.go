package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"faq-chatter/internal/formatter"
	"faq-chatter/internal/history"
	"faq-chatter/internal/knowledge"
	"faq-chatter/internal/responder"
	"faq-chatter/internal/retrieval"
	"faq-chatter/internal/storage"
	"faq-chatter/internal/tokenizer"
)

const apology = "น้องอะตอมง่วงจังเลยค่ะ ไว้เจอกันคราวหลังนะคะ"

type fakeGenerator struct {
	text   string
	fail   bool
	panics bool
	calls  int
	recent [][]history.Turn
}

func (g *fakeGenerator) Respond(ctx context.Context, userID, input string, recent []history.Turn) responder.Reply {
	g.calls++
	g.recent = append(g.recent, recent)
	if g.panics {
		panic("provider exploded")
	}
	if g.fail {
		return responder.Reply{Text: apology, Failed: true, Err: errors.New("provider down")}
	}
	return responder.Reply{Text: g.text}
}

func (g *fakeGenerator) Apology() string { return apology }

type fakeRecorder struct {
	mu      sync.Mutex
	records []storage.Record
}

func (r *fakeRecorder) Log(rec storage.Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return true
}

type panicMatcher struct{}

func (panicMatcher) Match(string, float64) (retrieval.Match, bool) { panic("index corrupted") }

func newService(gen Generator) (*Service, *history.Manager, *fakeRecorder) {
	corpus := retrieval.NewCorpus(tokenizer.Default(), []knowledge.QuestionEntry{
		{Question: "ตึกไหนเรียน", Answer: "ตึก SC2 ค่ะ"},
	})
	h := history.NewManager()
	rec := &fakeRecorder{}
	svc := NewService(corpus, gen, formatter.Default("น้องอะตอมยูงทอง"), h, rec,
		Options{Threshold: 0.65, MaxInputRunes: 1000}, nil)
	return svc, h, rec
}

func TestReply_RetrievalMatch(t *testing.T) {
	gen := &fakeGenerator{}
	svc, h, rec := newService(gen)

	res := svc.Reply(context.Background(), "U1", "ตึกไหนเรียนอ่า")
	if res.Kind != storage.RetrievalMatch || res.Text != "ตึก SC2 ค่ะ✨" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Score < 0.65 {
		t.Fatalf("score %v", res.Score)
	}
	if gen.calls != 0 {
		t.Fatal("generator must not be called on a match")
	}
	turns := h.Recent("U1")
	if len(turns) != 1 || turns[0].UserInput != "ตึกไหนเรียนอ่า" || turns[0].BotResponse != "ตึก SC2 ค่ะ✨" {
		t.Fatalf("history: %+v", turns)
	}
	if len(rec.records) != 1 || rec.records[0].Kind != storage.RetrievalMatch || rec.records[0].Response != "ตึก SC2 ค่ะ✨" {
		t.Fatalf("records: %+v", rec.records)
	}
}

func TestReply_GeneratedFallback(t *testing.T) {
	gen := &fakeGenerator{text: "สวัสดีค่ะ น้องอะตอมยูงทองเอง"}
	svc, h, rec := newService(gen)

	res := svc.Reply(context.Background(), "U1", "สวัสดีครับ")
	if res.Kind != storage.GeneratedFallback {
		t.Fatalf("kind = %v", res.Kind)
	}
	if res.Text != "สวัสดีค่ะ✨ น้องอะตอมยูงทอง😊เอง" {
		t.Fatalf("text = %q", res.Text)
	}
	if gen.calls != 1 || len(h.Recent("U1")) != 1 {
		t.Fatalf("calls=%d history=%d", gen.calls, len(h.Recent("U1")))
	}
	if len(rec.records) != 1 || rec.records[0].Kind != storage.GeneratedFallback {
		t.Fatalf("records: %+v", rec.records)
	}
}

func TestReply_HistoryPassedToGenerator(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	svc, _, _ := newService(gen)
	ctx := context.Background()
	svc.Reply(ctx, "U1", "ตึกไหนเรียน")
	svc.Reply(ctx, "U1", "สวัสดีครับ")
	if len(gen.recent) != 1 || len(gen.recent[0]) != 1 || gen.recent[0][0].UserInput != "ตึกไหนเรียน" {
		t.Fatalf("recent passed to generator: %+v", gen.recent)
	}
}

func TestReply_ProviderFailureIsErrorFallback(t *testing.T) {
	svc, h, rec := newService(&fakeGenerator{fail: true})
	res := svc.Reply(context.Background(), "U1", "สวัสดีครับ")
	if res.Kind != storage.ErrorFallback || res.Text != apology {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(h.Recent("U1")) != 0 {
		t.Fatal("failed replies must not enter history")
	}
	if len(rec.records) != 1 || rec.records[0].Kind != storage.ErrorFallback {
		t.Fatalf("records: %+v", rec.records)
	}
}

func TestReply_PanicDegradesToApology(t *testing.T) {
	svc, _, rec := newService(&fakeGenerator{panics: true})
	res := svc.Reply(context.Background(), "U1", "สวัสดีครับ")
	if res.Kind != storage.ErrorFallback || res.Text != apology {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(rec.records) != 1 {
		t.Fatalf("panic not logged: %+v", rec.records)
	}

	svc.matcher = panicMatcher{}
	if res := svc.Reply(context.Background(), "U1", "x"); res.Text != apology {
		t.Fatalf("matcher panic not contained: %+v", res)
	}
}

func TestReply_InputTruncated(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	svc, h, _ := newService(gen)
	svc.opts.MaxInputRunes = 5
	svc.Reply(context.Background(), "U1", strings.Repeat("ก", 20))
	if got := h.Recent("U1")[0].UserInput; got != "กกกกก" {
		t.Fatalf("input not truncated: %q", got)
	}
}

func TestForget(t *testing.T) {
	svc, h, _ := newService(&fakeGenerator{text: "ok"})
	svc.Reply(context.Background(), "U1", "ตึกไหนเรียน")
	svc.Forget("U1")
	if len(h.Recent("U1")) != 0 {
		t.Fatal("history not cleared")
	}
}

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"abc", 0, "abc"},
		{"abc", 5, "abc"},
		{"สวัสดี", 2, "สว"},
		{"abc", 3, "abc"},
	}
	for _, c := range cases {
		if got := truncateRunes(c.in, c.max); got != c.want {
			t.Fatalf("truncateRunes(%q,%d)=%q want %q", c.in, c.max, got, c.want)
		}
	}
}
