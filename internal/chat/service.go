// Package chat turns one user message into one reply: corpus retrieval
// first, generation as the fallback, then formatting, history and logging.
package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"faq-chatter/internal/formatter"
	"faq-chatter/internal/history"
	"faq-chatter/internal/logging"
	"faq-chatter/internal/responder"
	"faq-chatter/internal/retrieval"
	"faq-chatter/internal/storage"
)

type Matcher interface {
	Match(input string, threshold float64) (retrieval.Match, bool)
}

type Generator interface {
	Respond(ctx context.Context, userID, input string, recent []history.Turn) responder.Reply
	Apology() string
}

type Recorder interface {
	Log(rec storage.Record) bool
}

type Options struct {
	Threshold     float64
	MaxInputRunes int
}

// Result is the reply text and how it was produced. Score is the best
// retrieval score seen, even when the reply was generated.
type Result struct {
	Text  string
	Kind  storage.Kind
	Score float64
}

type Service struct {
	matcher   Matcher
	generator Generator
	formatter *formatter.Formatter
	history   *history.Manager
	recorder  Recorder
	opts      Options
	log       *zap.Logger
	now       func() time.Time
}

func NewService(m Matcher, g Generator, f *formatter.Formatter, h *history.Manager, rec Recorder, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		matcher:   m,
		generator: g,
		formatter: f,
		history:   h,
		recorder:  rec,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// Reply always produces a non-empty text. Unexpected faults degrade to the
// apology with kind ErrorFallback.
func (s *Service) Reply(ctx context.Context, userID, text string) (res Result) {
	log := logging.FromContext(ctx, s.log)
	input := truncateRunes(text, s.opts.MaxInputRunes)
	defer func() {
		if p := recover(); p != nil {
			log.Error("💥 panic while answering", zap.Any("panic", p))
			res = Result{Text: s.generator.Apology(), Kind: storage.ErrorFallback}
			s.record(userID, input, res)
		}
	}()

	match, ok := s.matcher.Match(input, s.opts.Threshold)
	if ok {
		log.Debug("📚 retrieval match",
			zap.Int("entry", match.Index),
			zap.Float64("score", match.Score))
		res = s.finish(userID, input, match.Entry.Answer, storage.RetrievalMatch)
		res.Score = match.Score
		return res
	}

	log.Debug("🔎 no retrieval match, generating",
		zap.String("score", fmt.Sprintf("%.2f%%", match.Score*100)))
	reply := s.generator.Respond(ctx, userID, input, s.history.Recent(userID))
	if reply.Failed {
		res = Result{Text: reply.Text, Kind: storage.ErrorFallback, Score: match.Score}
		s.record(userID, input, res)
		return res
	}
	res = s.finish(userID, input, reply.Text, storage.GeneratedFallback)
	res.Score = match.Score
	return res
}

// Forget drops the user's conversation history.
func (s *Service) Forget(userID string) {
	s.history.Reset(userID)
}

func (s *Service) finish(userID, input, answer string, kind storage.Kind) Result {
	res := Result{Text: s.formatter.Format(answer), Kind: kind}
	if userID != "" {
		s.history.Append(userID, history.Turn{UserInput: input, BotResponse: res.Text})
	}
	s.record(userID, input, res)
	return res
}

func (s *Service) record(userID, input string, res Result) {
	if s.recorder == nil {
		return
	}
	s.recorder.Log(storage.Record{
		Timestamp: s.now(),
		UserID:    userID,
		Question:  input,
		Response:  res.Text,
		Kind:      res.Kind,
	})
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
