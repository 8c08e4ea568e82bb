// Package geolocation resolves the caller's coordinates from a platform
// position source and classifies its failures.
package geolocation

import (
	"context"
	"fmt"
	"time"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// PositionErrorCode mirrors the platform geolocation error codes.
type PositionErrorCode int

const (
	PermissionDenied    PositionErrorCode = 1
	PositionUnavailable PositionErrorCode = 2
	Timeout             PositionErrorCode = 3
)

func (c PositionErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case PositionUnavailable:
		return "POSITION_UNAVAILABLE"
	case Timeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("CODE_%d", int(c))
	}
}

// PositionError is returned by a PositionSource that could not produce a fix.
type PositionError struct {
	Code    PositionErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return "geolocation: " + e.Code.String()
	}
	return fmt.Sprintf("geolocation: %s: %s", e.Code, e.Message)
}

// PositionOptions are the hints passed with each position query.
type PositionOptions struct {
	Timeout            time.Duration
	EnableHighAccuracy bool
}

// PositionSource is a single-shot position query.
type PositionSource interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (weather.Coordinates, error)
}

// StaticSource always reports the same coordinates.
type StaticSource struct {
	Coords weather.Coordinates
}

func (s StaticSource) CurrentPosition(ctx context.Context, _ PositionOptions) (weather.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, &PositionError{Code: Timeout, Message: err.Error()}
	}
	return s.Coords, nil
}
