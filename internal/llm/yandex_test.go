package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Morwran/yagpt"
)

type fakeIam struct {
	calls int
	ttl   time.Duration
	now   func() time.Time
	err   error
}

func (f *fakeIam) Create() (*yagpt.IamTokenResponse, error) {
	return f.CreateWithCtx(context.Background())
}

func (f *fakeIam) CreateWithCtx(ctx context.Context) (*yagpt.IamTokenResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &yagpt.IamTokenResponse{IamToken: fmt.Sprintf("iam-%d", f.calls), ExpiresAt: f.now().Add(f.ttl)}, nil
}

func (f *fakeIam) Close() error { return nil }

type fakeYa struct {
	tokens []string
	reply  string
}

func (f *fakeYa) CompletionWithCtx(ctx context.Context, iamTok string, m []yagpt.Message) (*yagpt.CompletionResponse, error) {
	f.tokens = append(f.tokens, iamTok)
	return &yagpt.CompletionResponse{
		Alternatives: []yagpt.Alternative{{Message: yagpt.Message{Role: RoleAssistant, Content: f.reply}}},
		Usage:        yagpt.ContentUsage{InputTextTokens: 4, CompletionTokens: 2, TotalTokens: 6},
	}, nil
}

func (f *fakeYa) Completion(iamTok string, m []yagpt.Message) (*yagpt.CompletionResponse, error) {
	return f.CompletionWithCtx(context.Background(), iamTok, m)
}

func TestYandexGenerate_RefreshesExpiringToken(t *testing.T) {
	clock := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	iam := &fakeIam{ttl: 12 * time.Hour, now: now}
	ya := &fakeYa{reply: "สวัสดีค่ะ"}
	c := newYandexClient(ya, iam)
	c.now = now

	msgs := []Message{{Role: RoleUser, Content: "hi"}}
	for i := 0; i < 2; i++ {
		resp, err := c.Generate(context.Background(), msgs)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if resp.Content != "สวัสดีค่ะ" || resp.TotalTokens != 6 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	}
	if iam.calls != 1 {
		t.Fatalf("token fetched %d times, want 1", iam.calls)
	}

	clock = clock.Add(12*time.Hour - iamRefreshMargin/2)
	if _, err := c.Generate(context.Background(), msgs); err != nil {
		t.Fatalf("generate after expiry: %v", err)
	}
	if iam.calls != 2 {
		t.Fatalf("token not refreshed near expiry, calls=%d", iam.calls)
	}
	want := []string{"iam-1", "iam-1", "iam-2"}
	for i, tok := range want {
		if ya.tokens[i] != tok {
			t.Fatalf("call %d used %q, want %q", i, ya.tokens[i], tok)
		}
	}
}

func TestYandexGenerate_TokenError(t *testing.T) {
	iam := &fakeIam{err: errors.New("unauthenticated"), now: time.Now}
	ya := &fakeYa{reply: "x"}
	c := newYandexClient(ya, iam)
	if _, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "q"}}); err == nil {
		t.Fatal("expected error")
	}
	if len(ya.tokens) != 0 {
		t.Fatal("completion called without a token")
	}
}

func TestYandexGenerate_Empty(t *testing.T) {
	iam := &fakeIam{ttl: time.Hour, now: time.Now}
	c := newYandexClient(&fakeYa{reply: "  "}, iam)
	_, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}
}
