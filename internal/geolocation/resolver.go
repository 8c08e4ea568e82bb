package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// DefaultTimeout bounds a single position query.
const DefaultTimeout = 8 * time.Second

// Resolver turns a PositionSource into coordinates or a classified error.
// It holds the last result of either kind for callers that need it later.
type Resolver struct {
	source  PositionSource
	timeout time.Duration

	mu         sync.RWMutex
	lastCoords *weather.Coordinates
	lastErr    *weather.AppError
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver creates a Resolver. A nil source means the platform has no
// location capability.
func NewResolver(source PositionSource, opts ...Option) *Resolver {
	r := &Resolver{source: source, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DetectLocation issues one low-accuracy position query. No retries.
func (r *Resolver) DetectLocation(ctx context.Context) (weather.Coordinates, error) {
	if r.source == nil {
		appErr := weather.NewAppError(weather.ErrGeolocationUnavailable,
			"Geolocation is not supported by this device.")
		r.setError(appErr)
		return weather.Coordinates{}, appErr
	}

	r.setError(nil)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	coords, err := r.source.CurrentPosition(ctx, PositionOptions{
		Timeout:            r.timeout,
		EnableHighAccuracy: false,
	})
	if err != nil {
		// A source that ignored the deadline still counts as a timeout.
		if ctx.Err() == context.DeadlineExceeded {
			var pe *PositionError
			if !errors.As(err, &pe) {
				err = &PositionError{Code: Timeout, Message: err.Error()}
			}
		}
		appErr := classifyPositionError(err)
		logger.GetLogger().Infow("geolocation failed", "type", appErr.Type, "error", err)
		r.setError(appErr)
		return weather.Coordinates{}, appErr
	}

	r.mu.Lock()
	r.lastCoords = &coords
	r.mu.Unlock()
	return coords, nil
}

// LastCoordinates returns the coordinates of the last successful query.
func (r *Resolver) LastCoordinates() (weather.Coordinates, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastCoords == nil {
		return weather.Coordinates{}, false
	}
	return *r.lastCoords, true
}

// LastError returns the error of the last failed query, or nil once a new
// query has started.
func (r *Resolver) LastError() *weather.AppError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

func (r *Resolver) setError(err *weather.AppError) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

func classifyPositionError(err error) *weather.AppError {
	var code PositionErrorCode
	var pe *PositionError
	if errors.As(err, &pe) {
		code = pe.Code
	}

	switch code {
	case PermissionDenied:
		return weather.WrapAppError(err, weather.ErrGeolocationDenied,
			"Access to geolocation was denied. Enter a city manually.")
	case PositionUnavailable:
		return weather.WrapAppError(err, weather.ErrGeolocationUnavailable,
			"Could not determine your location. Enter a city manually.")
	case Timeout:
		return weather.WrapAppError(err, weather.ErrGeolocationTimeout,
			"Geolocation timed out. Enter a city manually.")
	default:
		return weather.WrapAppError(err, weather.ErrGeolocationUnavailable, "Unknown geolocation error.")
	}
}
