package geolocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

func TestIPAPISourceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/203.0.113.7", r.URL.Path)
		assert.Equal(t, "status,message,lat,lon", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"status":"success","lat":55.75,"lon":37.62}`))
	}))
	defer srv.Close()

	src := NewIPAPISource(srv.Client(), srv.URL+"/json")
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	coords, err := src.CurrentPosition(ctx, PositionOptions{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinates{Lat: 55.75, Lon: 37.62}, coords)
}

func TestIPAPISourceFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType weather.ErrorType
	}{
		{name: "forbidden", status: http.StatusForbidden, wantType: weather.ErrGeolocationDenied},
		{name: "private range", status: http.StatusOK, body: `{"status":"fail","message":"private range"}`, wantType: weather.ErrGeolocationUnavailable},
		{name: "invalid query", status: http.StatusOK, body: `{"status":"fail","message":"invalid query"}`, wantType: weather.ErrGeolocationUnavailable},
		{name: "server error", status: http.StatusBadGateway, wantType: weather.ErrGeolocationUnavailable},
		{name: "garbage", status: http.StatusOK, body: `<html>`, wantType: weather.ErrGeolocationUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			r := NewResolver(NewIPAPISource(srv.Client(), srv.URL))

			_, err := r.DetectLocation(WithClientIP(context.Background(), "10.0.0.1"))
			assert.True(t, weather.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestIPAPISourceSlowProviderTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := NewResolver(NewIPAPISource(srv.Client(), srv.URL), WithTimeout(50*time.Millisecond))

	_, err := r.DetectLocation(context.Background())
	assert.True(t, weather.IsType(err, weather.ErrGeolocationTimeout), "got %v", err)
}

func TestClientIPRoundTrip(t *testing.T) {
	assert.Empty(t, ClientIP(context.Background()))
	assert.Equal(t, "192.0.2.1", ClientIP(WithClientIP(context.Background(), "192.0.2.1")))
}
