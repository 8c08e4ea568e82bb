package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const maxErrorBody = 4 << 10

var (
	errNoHTTPClient = errors.New("http client not configured")
	errNilResult    = errors.New("unexpected result type from circuit breaker")
)

// transportError means the request never produced a response.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "no response: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// httpStatusError carries a non-2xx response.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("API returned status %d", e.status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.status, e.body)
}

// newCircuitBreaker builds the breaker shared by every call of one client.
// Client-side statuses (bad key, unknown city) don't count as failures.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *httpStatusError
			if errors.As(err, &se) {
				return se.status < 500 && se.status != http.StatusTooManyRequests
			}
			return false
		},
	})
}

// doRequest executes a single attempt through the circuit breaker. On success
// the caller owns the response body.
func doRequest(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, &transportError{err: execErr}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, &httpStatusError{status: resp.StatusCode, body: string(body)}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, errNilResult
	}
	return resp, nil
}

// classifyError maps a low-level failure onto the AppError taxonomy.
func classifyError(err error) *weather.AppError {
	if appErr, ok := weather.AsAppError(err); ok {
		return appErr
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return weather.WrapAppError(err, weather.ErrNetwork,
			"Weather service is temporarily unreachable. Try again in a few minutes.")
	}

	var te *transportError
	if errors.As(err, &te) {
		return weather.WrapAppError(err, weather.ErrNetwork,
			"No connection to the weather service. Check your connection and try again.")
	}

	var se *httpStatusError
	if errors.As(err, &se) {
		switch se.status {
		case http.StatusUnauthorized:
			return weather.WrapAppError(err, weather.ErrAPI, "Invalid API key. Check the service configuration.")
		case http.StatusNotFound:
			return weather.WrapAppError(err, weather.ErrCityNotFound, "City not found. Check the name and try again.")
		case http.StatusTooManyRequests:
			return weather.WrapAppError(err, weather.ErrAPI, "Request limit exceeded. Try again in a few minutes.")
		default:
			return weather.WrapAppError(err, weather.ErrAPI, fmt.Sprintf("Server error: %d", se.status))
		}
	}

	return weather.WrapAppError(err, weather.ErrUnknown, "An unknown error occurred.")
}
