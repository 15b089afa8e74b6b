package server

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/evanhutnik/weatherstate-service/internal/notify"
	t "github.com/evanhutnik/weatherstate-service/internal/types"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"io"
	"net/http"
	"sync"
	"time"
)

type Controller interface {
	State() t.State
	UpdateWeatherData(ctx context.Context, req t.Coordinates)
	Subscribe(fn func(t.State)) (unsubscribe func())
}

type Toasts interface {
	List() []notify.Notification
	Dismiss(id string) bool
}

type StateResponse struct {
	t.State
	Gate t.Gate `json:"gate"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CodeError struct {
	code int
	msg  string
}

func (c CodeError) Error() string {
	return c.msg
}

type Option func(*Server)

// BaseContextOption sets the context background updates run under.
func BaseContextOption(ctx context.Context) Option {
	return func(s *Server) {
		s.bg = ctx
	}
}

func LoggerOption(logger *zap.SugaredLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

type Server struct {
	ctrl     Controller
	toasts   Toasts
	router   *mux.Router
	upgrader websocket.Upgrader
	bg       context.Context
	wg       sync.WaitGroup

	Logger *zap.SugaredLogger
}

func New(ctrl Controller, toasts Toasts, opts ...Option) *Server {
	s := &Server{
		ctrl:   ctrl,
		toasts: toasts,
		bg:     context.Background(),
		Logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ctrl == nil {
		panic("Missing controller in server")
	}
	if s.toasts == nil {
		panic("Missing toasts in server")
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/state", s.StateHandler).Methods(http.MethodGet)
	r.HandleFunc("/location", s.LocationHandler).Methods(http.MethodPost)
	r.HandleFunc("/toasts", s.ToastsHandler).Methods(http.MethodGet)
	r.HandleFunc("/toasts/{id}", s.DismissHandler).Methods(http.MethodDelete)
	r.HandleFunc("/ws", s.StreamHandler).Methods(http.MethodGet)
	r.Use(s.loggingMiddleware)
	s.router = r
	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down and waits for
// background updates.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Logger.Infow("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.Wait()
	return err
}

// Wait blocks until every update started through LocationHandler finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, http.StatusOK, stateResponse(s.ctrl.State()))
}

func (s *Server) LocationHandler(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseLocation(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.ctrl.UpdateWeatherData(s.bg, req)
	}()
	s.writeResponse(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) ToastsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, http.StatusOK, s.toasts.List())
}

func (s *Server) DismissHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.toasts.Dismiss(id) {
		s.writeError(w, CodeError{code: http.StatusNotFound, msg: "Unknown toast '" + id + "'"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) parseLocation(r *http.Request) (t.Coordinates, error) {
	var req t.Coordinates
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		return req, CodeError{code: http.StatusBadRequest, msg: "Unable to read request body"}
	}
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, CodeError{code: http.StatusBadRequest, msg: "Request body must be a JSON object with 'name' or 'latitude' and 'longitude'"}
	}
	return req, nil
}

func stateResponse(st t.State) StateResponse {
	return StateResponse{State: st, Gate: st.Gate()}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var codeErr CodeError
	if errors.As(err, &codeErr) {
		s.writeResponse(w, codeErr.code, ErrorResponse{Error: codeErr.Error()})
		return
	}
	s.Logger.Errorw(err.Error(), "action", "writeError")
	s.writeResponse(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}

func (s *Server) writeResponse(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warnw("encode failed", "error", err.Error(), "action", "writeResponse")
	}
}
