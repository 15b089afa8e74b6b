package notify

import (
	"context"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"sync"
	"time"
)

type Level string

const (
	LevelError Level = "error"
	LevelInfo  Level = "info"
)

// DefaultCapacity bounds how many undismissed toasts a Toaster keeps.
const DefaultCapacity = 50

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier must not block the caller for longer than a local write.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

func Error(msg string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     LevelError,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}
}

// Toaster keeps dismissible toasts in memory, oldest first.
type Toaster struct {
	mu       sync.Mutex
	toasts   []Notification
	capacity int
	logger   *zap.SugaredLogger
}

func NewToaster(logger *zap.SugaredLogger, capacity int) *Toaster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Toaster{capacity: capacity, logger: logger}
}

func (t *Toaster) Notify(_ context.Context, n Notification) {
	t.mu.Lock()
	t.toasts = append(t.toasts, n)
	if len(t.toasts) > t.capacity {
		t.toasts = t.toasts[len(t.toasts)-t.capacity:]
	}
	t.mu.Unlock()

	t.logger.Infow(n.Message, "toast", n.ID, "level", n.Level, "action", "Notify")
}

func (t *Toaster) List() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Notification, len(t.toasts))
	copy(out, t.toasts)
	return out
}

// Dismiss removes a toast and reports whether it was present.
func (t *Toaster) Dismiss(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, n := range t.toasts {
		if n.ID == id {
			t.toasts = append(t.toasts[:i], t.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}
