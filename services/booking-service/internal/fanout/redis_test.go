package fanout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRedisBridgeOpensCircuitAndStillDeliversLocally(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	hub := NewHub()
	local, cancel := hub.Subscribe("A")
	defer cancel()

	var transitions []string
	bridge := NewRedisBridge(rdb, hub, discardLogger(), BridgeConfig{
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		OnStateChange:    func(_, to string) { transitions = append(transitions, to) },
	})

	for i := 0; i < 2; i++ {
		err := bridge.Publish(context.Background(), event("A", "09:00"))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnavailable))
		receive(t, local)
	}

	err := bridge.Publish(context.Background(), event("A", "11:00"))
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "11:00", receive(t, local).TimeSlot)
	assert.Equal(t, "open", bridge.State())
	assert.Equal(t, []string{"open"}, transitions)
}

func TestRedisBridgeRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	hub := NewHub()
	ch, cancel := hub.Subscribe("A")
	defer cancel()

	bridge := NewRedisBridge(rdb, hub, discardLogger(), BridgeConfig{Channel: "expertbook:test:" + time.Now().Format("150405.000000")})
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	// Give the subscription a moment to register before publishing.
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(context.Background(), bridge.channel).Result()
		return err == nil && n[bridge.channel] > 0
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, bridge.Publish(context.Background(), event("A", "14:00")))
	assert.Equal(t, "14:00", receive(t, ch).TimeSlot)

	stop()
	require.NoError(t, <-done)
}
