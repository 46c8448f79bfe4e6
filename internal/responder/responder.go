// Package responder answers questions the corpus cannot, by prompting a
// generative model with the reference document and recent history.
package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"faq-chatter/internal/history"
	"faq-chatter/internal/llm"
	"faq-chatter/internal/logging"
)

// DefaultPersona is the style instruction placed at the top of every prompt.
const DefaultPersona = `You are a female chatbot, an offspring of dog and cat for the Faculty of Science and Technology named "อะตอมยูงทอง", Thammasat University.
Use concise Thai language with emojis and politeness. Answer the user's question based on the following info (you don't have to say
"สวัสดีค่ะ" unless they greet you first):`

// DefaultApology is sent whenever no answer can be produced.
const DefaultApology = "น้องอะตอมง่วงจังเลยค่ะ ไว้เจอกันคราวหลังนะคะ"

// ErrRateLimited is reported when a user has exhausted their generation budget.
var ErrRateLimited = errors.New("responder: rate limited")

const maxLimiters = 10000

type Options struct {
	Persona   string
	Reference string
	Apology   string
	Timeout   time.Duration
	// RatePerMinute of zero disables per-user limiting.
	RatePerMinute float64
	Burst         int
}

// Reply is the outcome of one generation. Failed replies carry the apology
// text and the cause in Err.
type Reply struct {
	Text   string
	Failed bool
	Err    error
}

type Responder struct {
	client llm.Client
	opts   Options
	log    *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(client llm.Client, opts Options, log *zap.Logger) *Responder {
	if opts.Persona == "" {
		opts.Persona = DefaultPersona
	}
	if opts.Apology == "" {
		opts.Apology = DefaultApology
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{client: client, opts: opts, log: log, limiters: make(map[string]*rate.Limiter)}
}

func (r *Responder) Apology() string { return r.opts.Apology }

// Respond never returns an error; every failure becomes the apology.
func (r *Responder) Respond(ctx context.Context, userID, input string, recent []history.Turn) (reply Reply) {
	log := logging.FromContext(ctx, r.log)
	defer func() {
		if p := recover(); p != nil {
			log.Error("💥 panic in fallback generation", zap.Any("panic", p))
			reply = r.fail(fmt.Errorf("panic: %v", p))
		}
	}()

	if !r.allow(userID) {
		log.Warn("🚦 fallback generation rate limited", zap.String("user_id", logging.ShortID(userID)))
		return r.fail(ErrRateLimited)
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	prompt := BuildPrompt(r.opts.Persona, r.opts.Reference, recent, input)
	start := time.Now()
	resp, err := r.client.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		log.Warn("❌ fallback generation failed",
			zap.String("user_id", logging.ShortID(userID)),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err))
		return r.fail(err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return r.fail(llm.ErrEmptyResponse)
	}
	log.Debug("🤖 fallback generated",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("completion_tokens", resp.CompletionTokens),
		zap.Duration("latency", time.Since(start)))
	return Reply{Text: text}
}

func (r *Responder) fail(err error) Reply {
	return Reply{Text: r.opts.Apology, Failed: true, Err: err}
}

func (r *Responder) allow(userID string) bool {
	if r.opts.RatePerMinute <= 0 {
		return true
	}
	r.mu.Lock()
	lim, ok := r.limiters[userID]
	if !ok {
		if len(r.limiters) >= maxLimiters {
			r.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Limit(r.opts.RatePerMinute/60), r.opts.Burst)
		r.limiters[userID] = lim
	}
	r.mu.Unlock()
	return lim.Allow()
}

// BuildPrompt flattens persona, reference and history into a single prompt.
// Turns are rendered oldest first.
func BuildPrompt(persona, reference string, recent []history.Turn, input string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(persona))
	b.WriteString("\n")
	b.WriteString(reference)
	b.WriteString("\n\nYour recent conversation with this user:\n")
	for i, t := range recent {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("User: ")
		b.WriteString(t.UserInput)
		b.WriteString("\nBot: ")
		b.WriteString(t.BotResponse)
	}
	b.WriteString("\n\nCurrent User Question: ")
	b.WriteString(input)
	b.WriteString("\nBot:")
	return b.String()
}
