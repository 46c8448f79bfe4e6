package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIGenerate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"สวัสดีค่ะ"},"finish_reason":"stop"}],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}`))
	}))
	defer srv.Close()

	c := NewOpenAI("test-key", srv.URL+"/v1", "gpt-4o-mini")
	resp, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "สวัสดีค่ะ" || resp.TotalTokens != 10 || resp.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.Model != "gpt-4o-mini" || len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestOpenAIGenerate_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("k", srv.URL+"/v1", "m").Generate(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	if _, err := (&Factory{}).CreateClient(context.Background(), "mystery"); err == nil {
		t.Fatal("expected error")
	}
}
