package server

import (
	t "github.com/evanhutnik/weatherstate-service/internal/types"
	"github.com/gorilla/websocket"
	"net/http"
	"sync"
	"time"
)

const writeWait = 10 * time.Second

// latestState holds at most one pending snapshot per connection. A newer
// snapshot replaces an unsent older one, so a slow client always ends on the
// current state instead of losing it.
type latestState struct {
	mu    sync.Mutex
	st    t.State
	has   bool
	ready chan struct{}
}

func newLatestState() *latestState {
	return &latestState{ready: make(chan struct{}, 1)}
}

func (l *latestState) put(st t.State) {
	l.mu.Lock()
	if !l.has || st.Version > l.st.Version {
		l.st = st
		l.has = true
	}
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latestState) take() (t.State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.st, l.has
	l.has = false
	return st, ok
}

// StreamHandler pushes the current state and then every published snapshot
// over a websocket. Snapshots superseded before they could be written are
// coalesced into the newest one; older versions are never sent.
func (s *Server) StreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warnw("websocket upgrade failed", "error", err.Error(), "action", "Stream")
		return
	}
	defer conn.Close()

	pending := newLatestState()
	unsubscribe := s.ctrl.Subscribe(pending.put)
	defer unsubscribe()

	// the client never sends anything we use; reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	current := s.ctrl.State()
	if err := s.send(conn, current); err != nil {
		return
	}
	last := current.Version

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-pending.ready:
			st, ok := pending.take()
			if !ok || st.Version <= last {
				continue
			}
			if err := s.send(conn, st); err != nil {
				s.Logger.Debugw("stream write failed", "error", err.Error(), "action", "Stream")
				return
			}
			last = st.Version
		}
	}
}

func (s *Server) send(conn *websocket.Conn, st t.State) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(stateResponse(st))
}
