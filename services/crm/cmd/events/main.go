// Command events follows the CRM event stream and prints one JSON object per
// event, for debugging and for piping into other tools.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"patorama/internal/util"
	"patorama/pkg/events"
	"patorama/services/crm/internal/config"
)

type line struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	EntityID  int64          `json:"entity_id"`
	ActorID   int64          `json:"actor_id,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	At        time.Time      `json:"at"`
}

func main() {
	from := flag.String("from", "$", `stream id to start after ("$" new only, "0" everything)`)
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.InitLogger(cfg.LogLevel)
	if cfg.RedisAddr == "" {
		log.Fatalf("redisAddr is required to follow events")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	stream, err := events.NewRedisStream(rdb, events.StreamConfig{Stream: cfg.EventStream})
	if err != nil {
		log.Fatalf("failed to init event stream: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	err = stream.Tail(ctx, *from, func(e events.Event) error {
		return enc.Encode(line{
			ID:        e.ID,
			Type:      e.Type,
			EntityID:  e.EntityID,
			ActorID:   e.ActorID,
			RequestID: e.RequestID,
			Data:      e.Data,
			At:        e.At,
		})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("tail stopped: %v", err)
	}
}
