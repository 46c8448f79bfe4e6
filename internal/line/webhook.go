// Package line receives LINE webhooks and answers text messages.
package line

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"faq-chatter/internal/chat"
	"faq-chatter/internal/dedupe"
	"faq-chatter/internal/logging"
)

const (
	SignatureHeader = "X-Line-Signature"
	MaxBodyBytes    = 1 << 20
	maxInFlight     = 8
)

type Chat interface {
	Reply(ctx context.Context, userID, text string) chat.Result
	Forget(userID string)
}

type Handler struct {
	secret  []byte
	chat    Chat
	replier Replier
	dedupe  dedupe.Store
	log     *zap.Logger
}

// NewHandler accepts a nil dedupe store, in which case every event is
// processed.
func NewHandler(channelSecret string, c Chat, r Replier, d dedupe.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{secret: []byte(channelSecret), chat: c, replier: r, dedupe: d, log: log}
}

// NewApp builds the fiber app serving /health and /webhook.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "faq-chatter",
		BodyLimit:             MaxBodyBytes,
		DisableStartupMessage: true,
	})
	app.Use(fiberrecover.New())
	h.Register(app)
	return app
}

func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})
	app.Post("/webhook", h.HandleWebhook)
}

func (h *Handler) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) > MaxBodyBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "body too large"})
	}
	if !ValidSignature(h.secret, body, c.Get(SignatureHeader)) {
		h.log.Warn("🔒 rejected webhook with invalid signature", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
	}

	var envelope struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Events == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing events"})
	}

	log := h.log.With(zap.String("trace_id", uuid.NewString()))
	ctx := logging.WithLogger(c.UserContext(), log)
	log.Debug("📨 webhook received", zap.Int("events", len(envelope.Events)))

	events := make([]webhook.EventInterface, 0, len(envelope.Events))
	for i, raw := range envelope.Events {
		ev, err := decodeEvent(raw)
		if err != nil {
			log.Warn("⚠️ skipping undecodable event", zap.Int("index", i), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}

	var g errgroup.Group
	g.SetLimit(maxInFlight)
	for _, ev := range events {
		g.Go(func() error {
			h.handleEvent(ctx, ev)
			return nil
		})
	}
	_ = g.Wait()
	return c.SendStatus(fiber.StatusOK)
}

// decodeEvent uses the SDK decoder and falls back to reading a text message
// loosely, so a source without a type still gets an answer.
func decodeEvent(raw json.RawMessage) (webhook.EventInterface, error) {
	ev, err := webhook.UnmarshalEvent(raw)
	if err == nil {
		return ev, nil
	}
	var loose struct {
		Type           string `json:"type"`
		ReplyToken     string `json:"replyToken"`
		WebhookEventId string `json:"webhookEventId"`
		Source         struct {
			UserId string `json:"userId"`
		} `json:"source"`
		Message struct {
			Type string `json:"type"`
			Id   string `json:"id"`
			Text string `json:"text"`
		} `json:"message"`
	}
	if json.Unmarshal(raw, &loose) != nil || loose.Type != "message" || loose.Message.Type != "text" {
		return nil, err
	}
	return webhook.MessageEvent{
		ReplyToken:     loose.ReplyToken,
		WebhookEventId: loose.WebhookEventId,
		Source:         webhook.UserSource{UserId: loose.Source.UserId},
		Message:        webhook.TextMessageContent{Id: loose.Message.Id, Text: loose.Message.Text},
	}, nil
}

// handleEvent isolates failures: nothing here affects sibling events.
func (h *Handler) handleEvent(ctx context.Context, ev webhook.EventInterface) {
	log := logging.FromContext(ctx, h.log)
	defer func() {
		if p := recover(); p != nil {
			log.Error("💥 panic while handling event", zap.Any("panic", p))
		}
	}()

	switch e := ev.(type) {
	case webhook.MessageEvent:
		text, ok := e.Message.(webhook.TextMessageContent)
		if !ok || e.ReplyToken == "" {
			return
		}
		if !h.claim(ctx, e.WebhookEventId) {
			log.Info("🔁 skipping redelivered event", zap.String("event_id", e.WebhookEventId))
			return
		}
		userID := UserID(e.Source)
		res := h.chat.Reply(ctx, userID, text.Text)
		if err := h.replier.Reply(ctx, e.ReplyToken, res.Text); err != nil {
			log.Warn("❌ failed to deliver reply",
				zap.String("user_id", logging.ShortID(userID)),
				zap.Error(err))
			return
		}
		log.Info("✅ replied",
			zap.String("user_id", logging.ShortID(userID)),
			zap.String("kind", res.Kind.String()),
			zap.Float64("score", res.Score))
	case webhook.UnfollowEvent:
		if userID := UserID(e.Source); userID != "" {
			h.chat.Forget(userID)
			log.Info("👋 user unfollowed, history cleared", zap.String("user_id", logging.ShortID(userID)))
		}
	}
}

// claim fails open when the store errors.
func (h *Handler) claim(ctx context.Context, id string) bool {
	if h.dedupe == nil || id == "" {
		return true
	}
	ok, err := h.dedupe.Claim(ctx, id)
	if err != nil {
		logging.FromContext(ctx, h.log).Warn("⚠️ dedupe store unavailable", zap.Error(err))
		return true
	}
	return ok
}

// UserID extracts the sender id from any source kind.
func UserID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}
