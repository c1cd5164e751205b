package blob

import (
	"context"
	"log/slog"
)

// NoopDeleter logs instead of deleting. Used in local development when
// no image bucket is configured.
type NoopDeleter struct {
	logger *slog.Logger
}

func NewNoopDeleter(logger *slog.Logger) *NoopDeleter {
	return &NoopDeleter{logger: logger}
}

func (d *NoopDeleter) Delete(_ context.Context, objectURL string) error {
	d.logger.Info("blob delete suppressed (noop deleter)", "url", objectURL)
	return nil
}
