package broadcast

import (
	"context"
	"encoding/json"
	"github.com/evanhutnik/weatherstate-service/internal/notify"
	t "github.com/evanhutnik/weatherstate-service/internal/types"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"sync"
	"time"
)

const (
	StateChannel = "weather:state"
	ToastChannel = "weather:toasts"

	DefaultQueueSize      = 64
	DefaultPublishTimeout = 500 * time.Millisecond
)

type message struct {
	channel string
	payload []byte
}

type Option func(*Redis)

func QueueSizeOption(size int) Option {
	return func(r *Redis) {
		if size > 0 {
			r.queueSize = size
		}
	}
}

// PublishTimeoutOption bounds each pub/sub round trip made by the worker.
func PublishTimeoutOption(d time.Duration) Option {
	return func(r *Redis) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Redis mirrors published state and toasts onto pub/sub channels so consumers
// outside this process can follow them. PublishState and Notify only enqueue;
// a single worker does the network calls, so a slow or unreachable Redis never
// holds up the controller. Failures and overflow are logged and dropped.
type Redis struct {
	rc        *redis.Client
	queueSize int
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan message
	done   chan struct{}

	Logger *zap.SugaredLogger
}

func NewRedis(rc *redis.Client, logger *zap.SugaredLogger, opts ...Option) *Redis {
	if rc == nil {
		panic("Missing redis client in broadcaster")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Redis{
		rc:        rc,
		queueSize: DefaultQueueSize,
		timeout:   DefaultPublishTimeout,
		done:      make(chan struct{}),
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.queue = make(chan message, r.queueSize)
	go r.run()
	return r
}

// PublishState queues s for StateChannel. It never waits on Redis.
func (r *Redis) PublishState(_ context.Context, s t.State) {
	r.enqueue(StateChannel, s)
}

func (r *Redis) Notify(_ context.Context, n notify.Notification) {
	r.enqueue(ToastChannel, n)
}

func (r *Redis) enqueue(channel string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.Logger.Errorw(err.Error(), "channel", channel, "action", "Publish")
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- message{channel: channel, payload: payload}:
	default:
		r.Logger.Warnw("publish queue full, dropping message", "channel", channel, "action", "Publish")
	}
}

func (r *Redis) run() {
	defer close(r.done)
	for m := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.rc.Publish(ctx, m.channel, m.payload).Err(); err != nil {
			r.Logger.Errorf("Redis error when publishing to %v: %v", m.channel, err.Error())
		}
		cancel()
	}
}

// Close stops accepting messages, waits for the queued ones to be attempted
// and closes the client. Calling it again is a no-op.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return r.rc.Close()
}
