package push

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"studiobook/internal/model"
)

// FCMGateway delivers push messages through Firebase Cloud Messaging.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS.
type FCMGateway struct {
	client *messaging.Client
	logger *slog.Logger
}

func NewFCMGateway(ctx context.Context, logger *slog.Logger) (*FCMGateway, error) {
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &FCMGateway{client: client, logger: logger}, nil
}

// Send pushes one message to a batch of tokens. Callers keep batches at
// or under the FCM multicast limit of 500 tokens.
func (g *FCMGateway) Send(ctx context.Context, tokens []string, n model.Notification) error {
	if len(tokens) == 0 {
		return nil
	}
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title:    n.Title,
			Body:     n.Body,
			ImageURL: n.Image,
		},
		Data: map[string]string{
			"category": n.Category,
		},
	}
	resp, err := g.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm multicast: %w", err)
	}
	if resp.FailureCount > 0 {
		g.logger.Warn("fcm partial delivery",
			"success", resp.SuccessCount, "failure", resp.FailureCount)
	}
	return nil
}
