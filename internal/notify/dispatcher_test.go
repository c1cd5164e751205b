package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"studiobook/internal/model"
)

type fakeRecords struct {
	mu       sync.Mutex
	inserted []model.Notification
	err      error
}

func (f *fakeRecords) Insert(_ context.Context, n model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, n)
	return nil
}

type fakeTokens struct {
	user []string
	all  []string
	err  error
}

func (f *fakeTokens) ActiveTokensForUser(context.Context, string) ([]string, error) {
	return f.user, f.err
}

func (f *fakeTokens) AllActiveTokens(context.Context) ([]string, error) {
	return f.all, f.err
}

type fakeGateway struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (f *fakeGateway) Send(_ context.Context, tokens []string, _ model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, tokens)
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestDispatchRecordsEvenWhenPushFails(t *testing.T) {
	records := &fakeRecords{}
	gateway := &fakeGateway{err: errors.New("gateway down")}
	d := NewDispatcher(records, &fakeTokens{user: []string{"tok-1"}}, gateway, discardLogger())

	d.Dispatch(context.Background(), model.Notification{
		Recipient: "client-1",
		Title:     "Booking confirmed",
		Category:  "confirmation",
	})

	if len(records.inserted) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records.inserted))
	}
	if len(gateway.batches) != 1 {
		t.Fatalf("expected 1 send attempt, got %d", len(gateway.batches))
	}
}

func TestDispatchPushesEvenWhenRecordFails(t *testing.T) {
	records := &fakeRecords{err: errors.New("db down")}
	gateway := &fakeGateway{}
	d := NewDispatcher(records, &fakeTokens{user: []string{"tok-1"}}, gateway, discardLogger())

	d.Dispatch(context.Background(), model.Notification{Recipient: "client-1"})

	if len(gateway.batches) != 1 {
		t.Fatalf("expected push despite record failure, got %d batches", len(gateway.batches))
	}
}

func TestDispatchSkipsPushWithoutTokens(t *testing.T) {
	records := &fakeRecords{}
	gateway := &fakeGateway{}
	d := NewDispatcher(records, &fakeTokens{}, gateway, discardLogger())

	d.Dispatch(context.Background(), model.Notification{Recipient: "client-1"})

	if len(gateway.batches) != 0 {
		t.Fatalf("expected no send without tokens, got %d batches", len(gateway.batches))
	}
	if len(records.inserted) != 1 {
		t.Fatalf("record should still be written, got %d", len(records.inserted))
	}
}

func TestDispatchChunksLargeTokenSets(t *testing.T) {
	tokens := make([]string, maxTokensPerSend+200)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}
	gateway := &fakeGateway{}
	d := NewDispatcher(&fakeRecords{}, &fakeTokens{user: tokens}, gateway, discardLogger())

	d.Dispatch(context.Background(), model.Notification{Recipient: "client-1"})

	if len(gateway.batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(gateway.batches))
	}
	total := 0
	for _, b := range gateway.batches {
		if len(b) > maxTokensPerSend {
			t.Fatalf("batch exceeds limit: %d", len(b))
		}
		total += len(b)
	}
	if total != len(tokens) {
		t.Fatalf("expected %d tokens sent, got %d", len(tokens), total)
	}
}

func TestBroadcastUsesWildcardRecipient(t *testing.T) {
	records := &fakeRecords{}
	gateway := &fakeGateway{}
	d := NewDispatcher(records, &fakeTokens{all: []string{"tok-a", "tok-b"}}, gateway, discardLogger())

	d.Broadcast(context.Background(), model.Notification{
		Title:    "New scenario",
		Category: "announcement",
	})

	if len(records.inserted) != 1 {
		t.Fatalf("expected 1 broadcast record, got %d", len(records.inserted))
	}
	if records.inserted[0].Recipient != BroadcastRecipient {
		t.Fatalf("expected wildcard recipient, got %q", records.inserted[0].Recipient)
	}
	if len(gateway.batches) != 1 || len(gateway.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2 tokens, got %v", gateway.batches)
	}
}

func TestDispatchTokenLookupFailureStillRecords(t *testing.T) {
	records := &fakeRecords{}
	gateway := &fakeGateway{}
	d := NewDispatcher(records, &fakeTokens{err: errors.New("lookup failed")}, gateway, discardLogger())

	d.Dispatch(context.Background(), model.Notification{Recipient: "client-1"})

	if len(gateway.batches) != 0 {
		t.Fatalf("expected no push on lookup failure, got %d", len(gateway.batches))
	}
	if len(records.inserted) != 1 {
		t.Fatalf("record should still be written, got %d", len(records.inserted))
	}
}
