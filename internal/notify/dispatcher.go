package notify

import (
	"context"
	"log/slog"
	"sync"

	"studiobook/internal/model"
)

// maxTokensPerSend is the push gateway's per-call token ceiling.
const maxTokensPerSend = 500

// BroadcastRecipient marks a notification record addressed to every client.
const BroadcastRecipient = "*"

// RecordStore persists the notification log.
type RecordStore interface {
	Insert(ctx context.Context, n model.Notification) error
}

// TokenStore resolves push tokens for delivery.
type TokenStore interface {
	ActiveTokensForUser(ctx context.Context, uid string) ([]string, error)
	AllActiveTokens(ctx context.Context) ([]string, error)
}

// Gateway delivers one push message to a batch of device tokens.
type Gateway interface {
	Send(ctx context.Context, tokens []string, n model.Notification) error
}

// Dispatcher fans a notification out to the record log and the push
// gateway. Delivery is best effort: every failure is logged and
// swallowed so callers never fail a mutation over a notification.
type Dispatcher struct {
	records RecordStore
	devices TokenStore
	gateway Gateway
	logger  *slog.Logger
}

func NewDispatcher(records RecordStore, devices TokenStore, gateway Gateway, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{records: records, devices: devices, gateway: gateway, logger: logger}
}

// Dispatch writes the record and pushes to the recipient's devices. The
// record write runs concurrently with the token lookup; the two halves
// succeed or fail independently.
func (d *Dispatcher) Dispatch(ctx context.Context, n model.Notification) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.records.Insert(ctx, n); err != nil {
			d.logger.Error("notification record write failed",
				"recipient", n.Recipient, "category", n.Category, "error", err)
		}
	}()

	tokens, err := d.devices.ActiveTokensForUser(ctx, n.Recipient)
	if err != nil {
		d.logger.Error("push token lookup failed", "recipient", n.Recipient, "error", err)
		wg.Wait()
		return
	}
	d.push(ctx, tokens, n)
	wg.Wait()
}

// Broadcast writes a single wildcard record and pushes to every active
// device.
func (d *Dispatcher) Broadcast(ctx context.Context, n model.Notification) {
	n.Recipient = BroadcastRecipient

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.records.Insert(ctx, n); err != nil {
			d.logger.Error("broadcast record write failed", "category", n.Category, "error", err)
		}
	}()

	tokens, err := d.devices.AllActiveTokens(ctx)
	if err != nil {
		d.logger.Error("broadcast token lookup failed", "error", err)
		wg.Wait()
		return
	}
	d.push(ctx, tokens, n)
	wg.Wait()
}

func (d *Dispatcher) push(ctx context.Context, tokens []string, n model.Notification) {
	if len(tokens) == 0 {
		return
	}
	var wg sync.WaitGroup
	for start := 0; start < len(tokens); start += maxTokensPerSend {
		end := start + maxTokensPerSend
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.gateway.Send(ctx, batch, n); err != nil {
				d.logger.Error("push send failed",
					"recipient", n.Recipient, "tokens", len(batch), "error", err)
			}
		}()
	}
	wg.Wait()
}
