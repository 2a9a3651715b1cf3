package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/kstaniek/go-mavcodec/internal/events"
	"github.com/kstaniek/go-mavcodec/internal/parser"
	"github.com/redis/go-redis/v9"
)

// redisSink subscribes to the event bus's "message" channel and
// publishes every decoded message to a Redis channel named after the
// message, one field at a time: a pipelined HSet+Publish per field,
// generalized from scooter telemetry keys to decoded wire fields.
func startRedisSink(ctx context.Context, addr string, bus *events.Bus, l *slog.Logger, wg *sync.WaitGroup) (func(), error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	sub := bus.Subscribe("message")
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer bus.Unsubscribe("message", sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Closed:
				return
			case payload, ok := <-sub.C:
				if !ok {
					return
				}
				ev, ok := payload.(parser.MessageEvent)
				if !ok {
					continue
				}
				publishMessage(ctx, rdb, ev, l)
			}
		}
	}()

	return func() { _ = rdb.Close() }, nil
}

func publishMessage(ctx context.Context, rdb *redis.Client, ev parser.MessageEvent, l *slog.Logger) {
	key := "mavcodec:" + ev.Name
	names := make([]string, 0, len(ev.Fields))
	for name := range ev.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	pipe := rdb.Pipeline()
	for _, name := range names {
		value := fmt.Sprint(ev.Fields[name])
		pipe.HSet(ctx, key, name, value)
		pipe.Publish(ctx, key, fmt.Sprintf("%s:%s", name, value))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		l.Warn("redis_publish_error", "message", ev.Name, "error", err)
	}
}
