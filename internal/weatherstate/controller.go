package weatherstate

import (
	"context"
	"github.com/evanhutnik/weatherstate-service/internal/notify"
	t "github.com/evanhutnik/weatherstate-service/internal/types"
	"go.uber.org/zap"
	"sync"
	"time"
)

// DefaultLocation is requested once when the controller is activated.
const DefaultLocation = "Vitoria,Espirito Santo,BRA"

type Geocoder interface {
	GeoCode(ctx context.Context, name string) (*t.Coordinates, error)
}

type WeatherFetcher interface {
	GetWeather(ctx context.Context, lat float64, lng float64) (t.WeatherData, error)
}

type Option func(*Controller)

func DefaultLocationOption(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.defaultLocation = name
		}
	}
}

func LoggerOption(logger *zap.SugaredLogger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// Controller holds the published weather state. Each update takes a request id
// and only the most recently issued id may write to the state.
type Controller struct {
	geo             Geocoder
	wx              WeatherFetcher
	notifier        notify.Notifier
	defaultLocation string

	mu        sync.RWMutex
	state     t.State
	latest    uint64
	listeners map[int]func(t.State)
	nextID    int

	activate sync.Once
	wg       sync.WaitGroup

	Logger *zap.SugaredLogger
}

func New(geo Geocoder, wx WeatherFetcher, notifier notify.Notifier, opts ...Option) *Controller {
	c := &Controller{
		geo:             geo,
		wx:              wx,
		notifier:        notifier,
		defaultLocation: DefaultLocation,
		listeners:       make(map[int]func(t.State)),
		Logger:          zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.geo == nil {
		panic("Missing geocoder in weather state controller")
	}
	if c.wx == nil {
		panic("Missing weather fetcher in weather state controller")
	}
	if c.notifier == nil {
		c.notifier = notify.Multi{}
	}
	return c
}

// Activate requests the default location in the background. Only the first
// call has any effect.
func (c *Controller) Activate(ctx context.Context) {
	c.activate.Do(func() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.UpdateWeatherData(ctx, t.Coordinates{Name: c.defaultLocation})
		}()
	})
}

// Close waits for the activation request and drops every subscriber.
func (c *Controller) Close() {
	c.wg.Wait()
	c.mu.Lock()
	c.listeners = make(map[int]func(t.State))
	c.mu.Unlock()
}

// UpdateWeatherData resolves req, fetches its weather and publishes both.
// Failures never reach the caller; they end up as notifications.
func (c *Controller) UpdateWeatherData(ctx context.Context, req t.Coordinates) {
	if req.IsEmpty() {
		err := &Error{Kind: UnknownLocation, Err: ErrUnknownCity}
		c.Logger.Warnw(err.Error(), "action", "UpdateWeatherData")
		c.clearLoading()
		c.notifier.Notify(ctx, notify.Error(err.Error()))
		return
	}

	start := time.Now()
	id := c.begin()

	coords, err := c.resolve(ctx, req)
	if err != nil {
		c.fail(ctx, id, err)
		return
	}

	data, err := c.wx.GetWeather(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		c.fail(ctx, id, &Error{Kind: WeatherFetchFailure, Err: err})
		return
	}

	if c.publish(id, coords, data) {
		c.Logger.Infow("weather updated",
			"request", id, "name", coords.Name, "latitude", coords.Latitude, "longitude", coords.Longitude,
			"dur_ms", time.Since(start).Milliseconds(), "action", "UpdateWeatherData")
	}
}

func (c *Controller) resolve(ctx context.Context, req t.Coordinates) (t.Coordinates, error) {
	if req.HasPosition() {
		return req, nil
	}
	coords, err := c.geo.GeoCode(ctx, req.Name)
	if err != nil {
		return t.Coordinates{}, &Error{Kind: GeocodingFailure, Err: err}
	}
	if coords == nil {
		return t.Coordinates{}, &Error{Kind: GeocodingFailure, Err: ErrUnknownCity}
	}
	return *coords, nil
}

// State returns a copy of the published state.
func (c *Controller) State() t.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

func (c *Controller) Gate() t.Gate {
	return c.State().Gate()
}

// Subscribe registers fn for every published snapshot. Snapshots may arrive
// out of order; Version orders them.
func (c *Controller) Subscribe(fn func(t.State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Reset clears the published location and weather and supersedes any update
// still in flight.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.latest++
	c.state.CurrentCityCoords = nil
	c.state.WeatherData = nil
	c.state.IsLoading = false
	c.state.Version++
	snap, listeners := c.snapshot(), c.listenerList()
	c.mu.Unlock()

	emit(listeners, snap)
}

func (c *Controller) begin() uint64 {
	c.mu.Lock()
	c.latest++
	id := c.latest
	if c.state.IsLoading {
		c.mu.Unlock()
		return id
	}
	c.state.IsLoading = true
	c.state.Version++
	snap, listeners := c.snapshot(), c.listenerList()
	c.mu.Unlock()

	emit(listeners, snap)
	return id
}

func (c *Controller) publish(id uint64, coords t.Coordinates, data t.WeatherData) bool {
	c.mu.Lock()
	if id != c.latest {
		c.mu.Unlock()
		c.Logger.Debugw("discarding stale weather result", "request", id, "action", "UpdateWeatherData")
		return false
	}
	c.state.CurrentCityCoords = &coords
	c.state.WeatherData = data
	c.state.IsLoading = false
	c.state.Version++
	snap, listeners := c.snapshot(), c.listenerList()
	c.mu.Unlock()

	emit(listeners, snap)
	return true
}

// clearLoading drops the loading flag without issuing a request id, so an
// update still in flight may publish when it completes.
func (c *Controller) clearLoading() {
	c.mu.Lock()
	if !c.state.IsLoading {
		c.mu.Unlock()
		return
	}
	c.state.IsLoading = false
	c.state.Version++
	snap, listeners := c.snapshot(), c.listenerList()
	c.mu.Unlock()

	emit(listeners, snap)
}

func (c *Controller) fail(ctx context.Context, id uint64, err error) {
	c.mu.Lock()
	if id != c.latest {
		c.mu.Unlock()
		// stale failures leave the state alone but are still reported
		c.Logger.Warnw(err.Error(), "request", id, "stale", true, "action", "UpdateWeatherData")
		c.notifier.Notify(ctx, notify.Error(err.Error()))
		return
	}
	c.state.IsLoading = false
	c.state.Version++
	snap, listeners := c.snapshot(), c.listenerList()
	c.mu.Unlock()

	c.Logger.Errorw(err.Error(), "request", id, "action", "UpdateWeatherData")
	emit(listeners, snap)
	c.notifier.Notify(ctx, notify.Error(err.Error()))
}

// snapshot and listenerList expect c.mu to be held.
func (c *Controller) snapshot() t.State {
	s := c.state
	if s.CurrentCityCoords != nil {
		coords := *s.CurrentCityCoords
		s.CurrentCityCoords = &coords
	}
	if s.WeatherData != nil {
		s.WeatherData = append(t.WeatherData(nil), s.WeatherData...)
	}
	return s
}

func (c *Controller) listenerList() []func(t.State) {
	out := make([]func(t.State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

func emit(listeners []func(t.State), s t.State) {
	for _, fn := range listeners {
		fn(s)
	}
}
