package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// DefaultIPAPIURL is the ip-api.com JSON endpoint.
const DefaultIPAPIURL = "http://ip-api.com/json"

type clientIPKey struct{}

// WithClientIP attaches the address to locate to ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the address attached by WithClientIP.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// IPAPISource locates a client by IP address through ip-api.com. It is the
// server-side stand-in for a device position API, so its failures are
// reported as PositionError codes.
type IPAPISource struct {
	baseURL string
	client  *http.Client
}

var _ PositionSource = (*IPAPISource)(nil)

func NewIPAPISource(client *http.Client, baseURL string) *IPAPISource {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultIPAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &IPAPISource{baseURL: baseURL, client: client}
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CurrentPosition looks up the IP attached to ctx, or the caller's own
// address when none is attached. Accuracy hints are ignored: IP lookups are
// always city-level.
func (s *IPAPISource) CurrentPosition(ctx context.Context, _ PositionOptions) (weather.Coordinates, error) {
	u := s.baseURL
	if ip := ClientIP(ctx); ip != "" {
		u += "/" + url.PathEscape(ip)
	}
	u += "?fields=status,message,lat,lon"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return weather.Coordinates{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return weather.Coordinates{}, &PositionError{Code: Timeout, Message: err.Error()}
		}
		return weather.Coordinates{}, &PositionError{Code: PositionUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return weather.Coordinates{}, &PositionError{Code: PermissionDenied, Message: "lookup forbidden by provider"}
	case resp.StatusCode != http.StatusOK:
		return weather.Coordinates{}, &PositionError{
			Code:    PositionUnavailable,
			Message: fmt.Sprintf("ip-api returned status %d", resp.StatusCode),
		}
	}

	var payload ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Coordinates{}, &PositionError{Code: PositionUnavailable, Message: err.Error()}
	}

	if payload.Status != "success" {
		msg := strings.ToLower(payload.Message)
		if common.HasAny(msg, "private range", "reserved range") {
			return weather.Coordinates{}, &PositionError{Code: PositionUnavailable, Message: "address is not publicly routable"}
		}
		// "invalid query" and anything undocumented.
		return weather.Coordinates{}, fmt.Errorf("ip-api lookup failed: %s", payload.Message)
	}

	return weather.Coordinates{Lat: payload.Lat, Lon: payload.Lon}, nil
}
