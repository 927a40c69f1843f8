package events

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStream(t *testing.T) (*RedisStream, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s, err := NewRedisStream(client, StreamConfig{Stream: "test:events"})
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	return s, client, mr
}

func TestRedisStreamPublishAndDecode(t *testing.T) {
	s, client, _ := newTestStream(t)
	ctx := context.Background()

	if err := s.Publish(ctx, Event{Type: JobCreated, EntityID: 7, ActorID: 1, Data: map[string]any{"address": "1 Road"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msgs, err := client.XRange(ctx, "test:events", "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	e, err := decode(msgs[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Type != JobCreated || e.EntityID != 7 || e.ActorID != 1 {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.ID == "" || e.At.IsZero() {
		t.Fatalf("expected id and timestamp to be filled, got %+v", e)
	}
	if e.Data["address"] != "1 Road" {
		t.Fatalf("unexpected data %+v", e.Data)
	}
}

func TestRedisStreamRejectsUntypedEvents(t *testing.T) {
	s, client, _ := newTestStream(t)
	if err := s.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error for empty type")
	}
	n, err := client.XLen(context.Background(), "test:events").Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty stream, got %d", n)
	}
}

func TestRedisStreamPublishFailsWhenRedisDown(t *testing.T) {
	s, _, mr := newTestStream(t)
	mr.Close()
	if err := s.Publish(context.Background(), Event{Type: InvoiceSent}); err == nil {
		t.Fatalf("expected publish to fail when redis is down")
	}
}

func TestNewRedisStreamValidates(t *testing.T) {
	if _, err := NewRedisStream(nil, StreamConfig{Stream: "x"}); err == nil {
		t.Fatalf("expected nil client to fail")
	}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	if _, err := NewRedisStream(client, StreamConfig{Stream: " "}); err == nil {
		t.Fatalf("expected empty stream to fail")
	}
}

func TestTailDeliversEventsInOrderAndSkipsMalformed(t *testing.T) {
	s, client, _ := newTestStream(t)
	ctx := context.Background()

	if err := s.Publish(ctx, Event{Type: JobCreated, EntityID: 1, RequestID: "req-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := client.XAdd(ctx, &redis.XAddArgs{Stream: "test:events", Values: map[string]any{"entity_id": "2"}}).Err(); err != nil {
		t.Fatalf("xadd: %v", err)
	}
	if err := s.Publish(ctx, Event{Type: UploadCreated, EntityID: 3}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	errDone := errors.New("done")
	var got []Event
	err := s.Tail(ctx, "0", func(e Event) error {
		got = append(got, e)
		if len(got) == 2 {
			return errDone
		}
		return nil
	})
	if !errors.Is(err, errDone) {
		t.Fatalf("tail returned %v", err)
	}
	if got[0].Type != JobCreated || got[0].RequestID != "req-1" || got[1].Type != UploadCreated || got[1].EntityID != 3 {
		t.Fatalf("tailed events = %+v", got)
	}
}

func TestTailStopsWhenContextEnds(t *testing.T) {
	s, _, _ := newTestStream(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Tail(ctx, "$", func(Event) error {
		t.Fatalf("no events expected")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("tail returned %v, want context.Canceled", err)
	}
}
