package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while the Redis circuit is open.
var ErrUnavailable = errors.New("fanout transport unavailable")

const DefaultChannel = "expertbook:slot-events"

// RedisBridge carries SlotEvents between service replicas over Redis pub/sub.
// Publish sends to Redis; Run receives from Redis (including this replica's
// own messages) and hands them to the local Hub.
type RedisBridge struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
	breaker *gobreaker.CircuitBreaker[int64]
	logger  *slog.Logger
}

type BridgeConfig struct {
	Channel          string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	OnStateChange    func(from, to string)
}

func NewRedisBridge(rdb *redis.Client, hub *Hub, logger *slog.Logger, cfg BridgeConfig) *RedisBridge {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	b := &RedisBridge{rdb: rdb, hub: hub, channel: cfg.Channel, logger: logger}
	b.breaker = gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "redis-fanout",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(from.String(), to.String())
			}
		},
	})
	return b
}

// Publish sends ev to Redis. When Redis cannot take it the event is still
// delivered to this replica's subscribers and the error is returned.
func (b *RedisBridge) Publish(ctx context.Context, ev model.SlotEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal slot event: %w", err)
	}

	_, err = b.breaker.Execute(func() (int64, error) {
		return b.rdb.Publish(ctx, b.channel, payload).Result()
	})
	if err == nil {
		return nil
	}

	_ = b.hub.Publish(ctx, ev)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return fmt.Errorf("redis publish: %w", err)
}

// Run forwards events from Redis into the Hub until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev model.SlotEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("dropping malformed slot event", "channel", msg.Channel, "err", err)
				continue
			}
			_ = b.hub.Publish(ctx, ev)
		}
	}
}

func (b *RedisBridge) State() string {
	return b.breaker.State().String()
}
