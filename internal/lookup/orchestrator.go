// Package lookup drives a weather lookup session: locate the user, fetch the
// weather, and expose the resulting state.
package lookup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/metrics"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// ErrBusy is returned when an entry point is called while another lookup of
// the same orchestrator is still in flight.
var ErrBusy = errors.New("lookup already in progress")

// Entry point names used for logs and metrics.
const (
	EntryInit   = "init"
	EntrySearch = "search"
	EntryRetry  = "retry"
)

// Locator resolves the current position. LastError exposes the classified
// error of the last failed attempt.
type Locator interface {
	DetectLocation(ctx context.Context) (weather.Coordinates, error)
	LastError() *weather.AppError
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records finished lookups on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.metrics = rec
	}
}

// Orchestrator owns the lookup state machine:
//
//	IDLE -> LOADING_GEO -> LOADING_WEATHER -> SUCCESS | ERROR
//
// SUCCESS and ERROR are re-entered through Init, SearchByCity and
// RetryGeolocation. Only one of them runs at a time; the others get ErrBusy.
type Orchestrator struct {
	locator Locator
	gateway weather.Gateway
	metrics *metrics.Recorder

	running atomic.Bool

	mu          sync.RWMutex
	status      Status
	snapshot    *weather.WeatherSnapshot
	appErr      *weather.AppError
	searchQuery string
	isLoading   bool

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

func New(locator Locator, gateway weather.Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		locator: locator,
		gateway: gateway,
		status:  StatusIdle,
		subs:    make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stateLocked()
}

// Subscribe registers fn to receive the state after every transition. fn runs
// on the goroutine that caused the transition and must not block.
func (o *Orchestrator) Subscribe(fn func(State)) (unsubscribe func()) {
	o.subsMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.subsMu.Unlock()

	return func() {
		o.subsMu.Lock()
		delete(o.subs, id)
		o.subsMu.Unlock()
	}
}

// Busy reports whether a lookup is in flight.
func (o *Orchestrator) Busy() bool {
	return o.running.Load()
}

// SetSearchQuery updates the city search field.
func (o *Orchestrator) SetSearchQuery(q string) {
	o.update(func() {
		o.searchQuery = q
	})
}

// Init locates the user and fetches the weather there. A location failure
// ends the attempt in ERROR; there is no fallback fetch.
func (o *Orchestrator) Init(ctx context.Context) error {
	return o.guard(EntryInit, func() error {
		return o.locateAndFetch(ctx, EntryInit)
	})
}

// RetryGeolocation starts over exactly like Init. Cached coordinates are
// never reused.
func (o *Orchestrator) RetryGeolocation(ctx context.Context) error {
	return o.guard(EntryRetry, func() error {
		return o.locateAndFetch(ctx, EntryRetry)
	})
}

// SearchByCity fetches the weather for the current search field. A blank
// field is a no-op. On success the field is cleared; on failure it keeps the
// submitted value.
func (o *Orchestrator) SearchByCity(ctx context.Context) error {
	return o.guard(EntrySearch, func() error {
		return o.search(ctx)
	})
}

// SearchCity sets the search field to q and searches, as one step. A
// rejected call leaves the field untouched.
func (o *Orchestrator) SearchCity(ctx context.Context, q string) error {
	return o.guard(EntrySearch, func() error {
		o.SetSearchQuery(q)
		return o.search(ctx)
	})
}

func (o *Orchestrator) search(ctx context.Context) error {
	o.mu.RLock()
	city := strings.TrimSpace(o.searchQuery)
	o.mu.RUnlock()
	if city == "" {
		return nil
	}

	start := time.Now()
	err := o.fetchWeather(ctx, func(ctx context.Context) (weather.WeatherSnapshot, error) {
		return o.gateway.FetchByCity(ctx, city)
	}, func() {
		o.searchQuery = ""
	})
	o.observe(EntrySearch, err, start)
	return err
}

func (o *Orchestrator) guard(entry string, fn func() error) error {
	if !o.running.CompareAndSwap(false, true) {
		o.metrics.ObserveRejected(entry)
		return ErrBusy
	}
	defer o.running.Store(false)
	return fn()
}

func (o *Orchestrator) locateAndFetch(ctx context.Context, entry string) error {
	start := time.Now()

	o.update(func() {
		o.status = StatusLoadingGeo
		o.isLoading = true
		o.appErr = nil
	})

	coords, err := o.locator.DetectLocation(ctx)
	if err != nil {
		appErr := o.locator.LastError()
		if appErr == nil {
			appErr = weather.WrapAppError(err, weather.ErrGeolocationUnavailable,
				"Could not determine your location. Enter a city manually.")
		}
		o.fail(appErr)
		o.observe(entry, appErr, start)
		return appErr
	}

	err = o.fetchWeather(ctx, func(ctx context.Context) (weather.WeatherSnapshot, error) {
		return o.gateway.FetchByCoordinates(ctx, coords)
	}, nil)
	o.observe(entry, err, start)
	return err
}

// fetchWeather is the weather-fetch sub-flow shared by every entry point.
// onSuccess runs under the state lock together with the SUCCESS transition.
func (o *Orchestrator) fetchWeather(
	ctx context.Context,
	fetch func(context.Context) (weather.WeatherSnapshot, error),
	onSuccess func(),
) error {
	o.update(func() {
		o.status = StatusLoadingWeather
		o.isLoading = true
		o.appErr = nil
	})
	defer o.clearLoading()

	snapshot, err := fetch(ctx)
	if err != nil {
		appErr, ok := weather.AsAppError(err)
		if !ok {
			appErr = weather.WrapAppError(err, weather.ErrUnknown, "An unknown error occurred.")
		}
		o.fail(appErr)
		return appErr
	}

	o.update(func() {
		o.snapshot = &snapshot
		o.status = StatusSuccess
		o.isLoading = false
		if onSuccess != nil {
			onSuccess()
		}
	})
	return nil
}

func (o *Orchestrator) fail(appErr *weather.AppError) {
	logger.GetLogger().Infow("lookup failed", "type", appErr.Type, "message", appErr.Message)
	o.update(func() {
		o.appErr = appErr
		o.status = StatusError
		o.isLoading = false
	})
}

// clearLoading guarantees the busy flag is down once a fetch returns.
func (o *Orchestrator) clearLoading() {
	o.mu.RLock()
	loading := o.isLoading
	o.mu.RUnlock()
	if loading {
		o.update(func() {
			o.isLoading = false
		})
	}
}

func (o *Orchestrator) observe(entry string, err error, start time.Time) {
	outcome := metrics.OutcomeSuccess
	if appErr, ok := weather.AsAppError(err); ok {
		outcome = string(appErr.Type)
	} else if err != nil {
		outcome = string(weather.ErrUnknown)
	}
	o.metrics.ObserveLookup(entry, outcome, time.Since(start))
}

func (o *Orchestrator) update(mutate func()) {
	o.mu.Lock()
	mutate()
	st := o.stateLocked()
	o.mu.Unlock()

	o.subsMu.Lock()
	subs := make([]func(State), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.subsMu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

func (o *Orchestrator) stateLocked() State {
	return State{
		Status:      o.status,
		Weather:     o.snapshot,
		Error:       o.appErr,
		SearchQuery: o.searchQuery,
		IsLoading:   o.isLoading,
	}
}
