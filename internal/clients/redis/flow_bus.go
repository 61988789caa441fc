package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/agepredict-backend/internal/events"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
)

// FlowBus publishes flow events on a redis pub/sub channel and can forward
// them back to a subscriber.
type FlowBus interface {
	events.Publisher
	StartForwarder(ctx context.Context, onEvent func(ev events.Event)) error
}

type flowBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewFlowBus(ctx context.Context, log *logger.Logger, addr, channel string) (FlowBus, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "agepredict.flow"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &flowBus{
		log:     log.With("service", "RedisFlowBus", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *flowBus) Publish(ctx context.Context, ev events.Event) error {
	if b == nil || b.rdb == nil {
		return errors.New("redis flow bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *flowBus) StartForwarder(ctx context.Context, onEvent func(ev events.Event)) error {
	if b == nil || b.rdb == nil {
		return errors.New("redis flow bus not initialized")
	}
	if onEvent == nil {
		return errors.New("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				ev, err := decodeEvent(m.Payload)
				if err != nil {
					b.log.Warn("bad flow event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

func (b *flowBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func decodeEvent(payload string) (events.Event, error) {
	var ev events.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return events.Event{}, err
	}
	if ev.Type == "" || ev.SessionID == "" {
		return events.Event{}, errors.New("event missing type or session_id")
	}
	return ev, nil
}
