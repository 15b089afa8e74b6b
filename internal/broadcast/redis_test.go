package broadcast

import (
	"context"
	"encoding/json"
	"github.com/alicebob/miniredis/v2"
	"github.com/evanhutnik/weatherstate-service/internal/notify"
	"github.com/evanhutnik/weatherstate-service/internal/types"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap/zaptest"
	"testing"
	"time"
)

func newBroadcaster(t *testing.T) (*Redis, *redis.Client) {
	mr := miniredis.RunT(t)
	pub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { sub.Close() })

	b := NewRedis(pub, zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { b.Close() })
	return b, sub
}

func receive(t *testing.T, ps *redis.PubSub) *redis.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := ps.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	return msg
}

func TestPublishState(t *testing.T) {
	b, sub := newBroadcaster(t)
	ctx := context.Background()

	ps := sub.Subscribe(ctx, StateChannel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	b.PublishState(ctx, types.State{
		Version:           3,
		WeatherData:       types.WeatherData(`{"temp":27}`),
		CurrentCityCoords: &types.Coordinates{Name: "Vitoria", Latitude: -20.3, Longitude: -40.3},
	})

	msg := receive(t, ps)
	var got types.State
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode state failed: %v", err)
	}
	if got.Version != 3 || string(got.WeatherData) != `{"temp":27}` {
		t.Errorf("unexpected state %+v", got)
	}
	if got.CurrentCityCoords == nil || got.CurrentCityCoords.Name != "Vitoria" {
		t.Errorf("unexpected coordinates %+v", got.CurrentCityCoords)
	}
}

func TestNotifyPublishesToast(t *testing.T) {
	b, sub := newBroadcaster(t)
	ctx := context.Background()

	ps := sub.Subscribe(ctx, ToastChannel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	n := notify.Error("Error while updating weather: Unknown city")
	b.Notify(ctx, n)

	msg := receive(t, ps)
	var got notify.Notification
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode toast failed: %v", err)
	}
	if got.ID != n.ID || got.Message != n.Message {
		t.Errorf("unexpected toast %+v", got)
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	mr := miniredis.RunT(t)
	b := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), zaptest.NewLogger(t).Sugar())
	mr.Close()

	b.PublishState(context.Background(), types.State{})
	b.Notify(context.Background(), notify.Error("boom"))
	if err := b.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestPublishDoesNotWaitOnRedis(t *testing.T) {
	// nothing listens on this address; dials hang until the timeout
	rc := redis.NewClient(&redis.Options{
		Addr:        "10.255.255.1:6379",
		MaxRetries:  -1,
		DialTimeout: 2 * time.Second,
	})
	b := NewRedis(rc, zaptest.NewLogger(t).Sugar(),
		QueueSizeOption(4),
		PublishTimeoutOption(50*time.Millisecond),
	)

	start := time.Now()
	for i := 0; i < 20; i++ {
		b.PublishState(context.Background(), types.State{Version: uint64(i)})
		b.Notify(context.Background(), notify.Error("boom"))
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("publishing blocked the caller for %v", elapsed)
	}

	closed := make(chan error, 1)
	go func() { closed <- b.Close() }()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not drain the queue")
	}
	// after Close, publishing is a silent no-op
	b.PublishState(context.Background(), types.State{})
	if err := b.Close(); err != nil {
		t.Errorf("second close returned %v", err)
	}
}

func TestCloseDeliversQueuedMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	ctx := context.Background()

	ps := sub.Subscribe(ctx, StateChannel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	b := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zaptest.NewLogger(t).Sugar())
	for v := uint64(1); v <= 5; v++ {
		b.PublishState(ctx, types.State{Version: v})
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	for want := uint64(1); want <= 5; want++ {
		var got types.State
		if err := json.Unmarshal([]byte(receive(t, ps).Payload), &got); err != nil {
			t.Fatalf("decode state failed: %v", err)
		}
		if got.Version != want {
			t.Fatalf("expected version %d, got %d", want, got.Version)
		}
	}
}
