package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"faq-chatter/internal/retrieval"
	"faq-chatter/internal/similarity"
	"faq-chatter/internal/tokenizer"
)

type MatchParams struct {
	Text      string   `json:"text" mcp:"the user question to match against the corpus"`
	Threshold *float64 `json:"threshold,omitempty" mcp:"minimum similarity in [0,1]; defaults to the configured threshold"`
}

type TokenizeParams struct {
	Text string `json:"text" mcp:"Thai text to segment into tokens"`
}

type CompareParams struct {
	A string `json:"a" mcp:"first text"`
	B string `json:"b" mcp:"second text"`
}

// FAQServer exposes the retrieval core to operators.
type FAQServer struct {
	tok       *tokenizer.Tokenizer
	corpus    *retrieval.Corpus
	threshold float64
	log       *zap.Logger
}

func NewFAQServer(tok *tokenizer.Tokenizer, corpus *retrieval.Corpus, threshold float64, log *zap.Logger) *FAQServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &FAQServer{tok: tok, corpus: corpus, threshold: threshold, log: log}
}

func errorResult(msg string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

// MatchQuestion reports the best corpus entry for a question and whether it
// clears the threshold.
func (s *FAQServer) MatchQuestion(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[MatchParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Text) == "" {
		return errorResult("❌ text is required"), nil
	}
	threshold := s.threshold
	if args.Threshold != nil {
		threshold = *args.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return errorResult(fmt.Sprintf("❌ threshold must be within [0,1], got %v", threshold)), nil
	}

	s.log.Info("🔍 match_question", zap.Float64("threshold", threshold))
	best, ok := s.corpus.Best(args.Text)
	if !ok {
		return errorResult("❌ corpus is empty"), nil
	}
	matched := best.Score >= threshold

	var b strings.Builder
	if matched {
		fmt.Fprintf(&b, "✅ Matched entry #%d (score %.4f ≥ %.2f)\n", best.Index, best.Score, threshold)
	} else {
		fmt.Fprintf(&b, "➖ No match: best entry #%d scored %.4f < %.2f\n", best.Index, best.Score, threshold)
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer: %s", best.Entry.Question, best.Entry.Answer)

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
		Meta: map[string]interface{}{
			"index":    best.Index,
			"score":    best.Score,
			"matched":  matched,
			"question": best.Entry.Question,
			"answer":   best.Entry.Answer,
		},
	}, nil
}

func (s *FAQServer) Tokenize(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[TokenizeParams]) (*mcp.CallToolResultFor[any], error) {
	tokens := s.tok.Tokenize(params.Arguments.Text)
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: strings.Join(tokens, " | ")}},
		Meta:    map[string]interface{}{"tokens": tokens, "count": len(tokens)},
	}, nil
}

func (s *FAQServer) CompareTexts(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[CompareParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	score := similarity.Score(s.tok.Tokenize(args.A), s.tok.Tokenize(args.B))
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("score: %.4f", score)}},
		Meta:    map[string]interface{}{"score": score},
	}, nil
}

func (s *FAQServer) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "match_question",
		Description: "Finds the FAQ entry most similar to a question and reports whether it clears the match threshold",
	}, s.MatchQuestion)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tokenize",
		Description: "Segments Thai text into the tokens used for similarity scoring",
	}, s.Tokenize)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compare_texts",
		Description: "Scores two texts with the same similarity measure the matcher uses",
	}, s.CompareTexts)
}
