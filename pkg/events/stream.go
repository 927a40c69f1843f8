// Package events publishes domain events to a Redis stream so other
// processes can follow CRM activity. Publishing is best-effort: the database
// stays the source of truth and a lost event is never replayed.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"patorama/internal/util"
)

// Event types.
const (
	JobCreated          = "job.created"
	JobUpdated          = "job.updated"
	JobDeleted          = "job.deleted"
	UploadCreated       = "upload.created"
	NotificationCreated = "notification.created"
	InvoiceCreated      = "invoice.created"
	InvoiceSent         = "invoice.sent"
)

// Event is one entry on the stream.
type Event struct {
	ID        string
	Type      string
	EntityID  int64
	ActorID   int64
	// RequestID links the event to the HTTP request log line that caused it.
	RequestID string
	Data      map[string]any
	At        time.Time
}

// Publisher appends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// RedisStream appends events with XADD, trimming the stream approximately
// to MaxLen entries.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

type StreamConfig struct {
	Stream string
	MaxLen int64
}

func NewRedisStream(client *redis.Client, cfg StreamConfig) (*RedisStream, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		return nil, errors.New("event stream required")
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}, nil
}

// Publish appends e to the stream. Missing ID and At are filled in.
func (s *RedisStream) Publish(ctx context.Context, e Event) error {
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("event type required")
	}
	if e.ID == "" {
		e.ID = util.NewID()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data := "{}"
	if len(e.Data) > 0 {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return err
		}
		data = string(raw)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":   e.ID,
			"type":       e.Type,
			"entity_id":  strconv.FormatInt(e.EntityID, 10),
			"actor_id":   strconv.FormatInt(e.ActorID, 10),
			"request_id": e.RequestID,
			"data":       data,
			"at":         e.At.Format(time.RFC3339Nano),
		},
	}).Err()
}

// Tail hands every event after stream id from ("$" for new events only, "0"
// for the whole stream) to fn, in order. It returns when ctx ends or fn
// fails. Malformed entries are logged and skipped.
func (s *RedisStream) Tail(ctx context.Context, from string, fn func(Event) error) error {
	if strings.TrimSpace(from) == "" {
		from = "$"
	}
	for {
		res, err := s.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{s.stream, from},
			Count:   100,
			Block:   5 * time.Second,
		}).Result()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				from = msg.ID
				e, err := decode(msg)
				if err != nil {
					util.LoggerFromContext(ctx).Warn("skipping malformed event", "stream_id", msg.ID, "err", err)
					continue
				}
				if err := fn(e); err != nil {
					return err
				}
			}
		}
	}
}

func decode(msg redis.XMessage) (Event, error) {
	e := Event{}
	e.ID, _ = msg.Values["event_id"].(string)
	e.RequestID, _ = msg.Values["request_id"].(string)
	e.Type, _ = msg.Values["type"].(string)
	if e.Type == "" {
		return Event{}, errors.New("event type missing")
	}
	if v, ok := msg.Values["entity_id"].(string); ok {
		e.EntityID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := msg.Values["actor_id"].(string); ok {
		e.ActorID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := msg.Values["data"].(string); ok && v != "" {
		if err := json.Unmarshal([]byte(v), &e.Data); err != nil {
			return Event{}, err
		}
	}
	if v, ok := msg.Values["at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			e.At = t
		}
	}
	return e, nil
}
