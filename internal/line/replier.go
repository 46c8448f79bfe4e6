package line

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Replier sends one text reply against a reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

type APIReplier struct {
	api *messaging_api.MessagingApiAPI
}

func NewAPIReplier(accessToken string) (*APIReplier, error) {
	api, err := messaging_api.NewMessagingApiAPI(accessToken)
	if err != nil {
		return nil, fmt.Errorf("init messaging api: %w", err)
	}
	return &APIReplier{api: api}, nil
}

func (r *APIReplier) Reply(ctx context.Context, replyToken, text string) error {
	_, err := r.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}
