package push

import (
	"context"
	"log/slog"

	"studiobook/internal/model"
)

// NoopGateway logs instead of sending. Used in local development when
// PUSH_PROVIDER is not fcm.
type NoopGateway struct {
	logger *slog.Logger
}

func NewNoopGateway(logger *slog.Logger) *NoopGateway {
	return &NoopGateway{logger: logger}
}

func (g *NoopGateway) Send(_ context.Context, tokens []string, n model.Notification) error {
	g.logger.Info("push suppressed (noop provider)",
		"recipient", n.Recipient, "title", n.Title, "tokens", len(tokens))
	return nil
}
