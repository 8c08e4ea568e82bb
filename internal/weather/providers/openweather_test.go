package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const moscowPayload = `{
  "coord": {"lon": 37.62, "lat": 55.75},
  "weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}],
  "main": {"temp": 20.4, "feels_like": 19.6, "temp_min": 18.5, "temp_max": 21.49, "pressure": 1012, "humidity": 60},
  "wind": {"speed": 3.5, "deg": 220, "gust": 7.1},
  "sys": {"country": "RU", "sunrise": 1718413200, "sunset": 1718476800},
  "name": "Moscow",
  "dt": 1718450000
}`

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*OpenWeatherGateway, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	g := NewOpenWeatherGateway(&http.Client{Timeout: 2 * time.Second}, OpenWeatherConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Lang:    "ru",
	})
	return g, &calls
}

func TestFetchByCoordinatesNormalizes(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "55.75", q.Get("lat"))
		assert.Equal(t, "37.62", q.Get("lon"))
		assert.Equal(t, "test-key", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "ru", q.Get("lang"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(moscowPayload))
	})

	snap, err := g.FetchByCoordinates(context.Background(), weather.Coordinates{Lat: 55.75, Lon: 37.62})
	require.NoError(t, err)

	assert.Equal(t, "Moscow", snap.CityName)
	assert.Equal(t, "RU", snap.Country)
	assert.Equal(t, weather.Coordinates{Lat: 55.75, Lon: 37.62}, snap.Coordinates)
	assert.Equal(t, weather.Condition{ID: 803, Main: "Clouds", Description: "broken clouds", Icon: "04d"}, snap.Condition)
	assert.Equal(t, weather.Temperature{Temp: 20, FeelsLike: 20, TempMin: 19, TempMax: 21}, snap.Temperature)
	assert.Equal(t, 60, snap.Humidity)
	assert.Equal(t, 1012, snap.Pressure)
	assert.Equal(t, 3.5, snap.Wind.Speed)
	assert.Equal(t, 220.0, snap.Wind.Deg)
	require.NotNil(t, snap.Wind.Gust)
	assert.Equal(t, 7.1, *snap.Wind.Gust)
	assert.Equal(t, int64(1718413200), snap.Sunrise)
	assert.Equal(t, int64(1718476800), snap.Sunset)
	assert.Equal(t, int64(1718450000), snap.UpdatedAt)
}

func TestFetchByCityTrimsQuery(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Saint Petersburg", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"name":"Saint Petersburg","weather":[],"main":{"temp":-0.5}}`))
	})

	snap, err := g.FetchByCity(context.Background(), "  Saint Petersburg \t")
	require.NoError(t, err)
	assert.Equal(t, "Saint Petersburg", snap.CityName)
	assert.Equal(t, 0, snap.Temperature.Temp)
	assert.Nil(t, snap.Wind.Gust)
	assert.Empty(t, snap.Condition.Main)
}

func TestFetchByCityRejectsBlankName(t *testing.T) {
	g, calls := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	for _, city := range []string{"", "   ", "\t\n"} {
		_, err := g.FetchByCity(context.Background(), city)
		require.Error(t, err)

		appErr, ok := weather.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, weather.ErrAPI, appErr.Type)
		assert.Equal(t, "Enter a city name.", appErr.Message)
	}
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestFetchStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType weather.ErrorType
		contains string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantType: weather.ErrAPI, contains: "API key"},
		{name: "not found", status: http.StatusNotFound, wantType: weather.ErrCityNotFound, contains: "City not found"},
		{name: "rate limited", status: http.StatusTooManyRequests, wantType: weather.ErrAPI, contains: "limit"},
		{name: "server error", status: http.StatusInternalServerError, wantType: weather.ErrAPI, contains: "500"},
		{name: "bad gateway", status: http.StatusBadGateway, wantType: weather.ErrAPI, contains: "502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"cod":"x","message":"nope"}`))
			})

			_, err := g.FetchByCity(context.Background(), "Atlantis")
			appErr, ok := weather.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Contains(t, appErr.Message, tt.contains)
			assert.NotNil(t, appErr.Cause)
		})
	}
}

func TestFetchNoResponseIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	g := NewOpenWeatherGateway(&http.Client{Timeout: time.Second}, OpenWeatherConfig{APIKey: "k", BaseURL: baseURL})

	_, err := g.FetchByCoordinates(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
	assert.True(t, weather.IsType(err, weather.ErrNetwork), "got %v", err)
}

func TestFetchMalformedBodyIsUnknown(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := g.FetchByCity(context.Background(), "Paris")
	assert.True(t, weather.IsType(err, weather.ErrUnknown), "got %v", err)
}

func TestFetchWithoutAPIKey(t *testing.T) {
	g := NewOpenWeatherGateway(http.DefaultClient, OpenWeatherConfig{})

	_, err := g.FetchByCity(context.Background(), "Paris")
	assert.True(t, weather.IsType(err, weather.ErrAPI))
}

func TestCircuitOpensOnServerErrors(t *testing.T) {
	g, calls := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	// gobreaker trips after more than five consecutive failures.
	for i := 0; i < 6; i++ {
		_, err := g.FetchByCity(context.Background(), "Paris")
		require.True(t, weather.IsType(err, weather.ErrAPI))
	}

	_, err := g.FetchByCity(context.Background(), "Paris")
	assert.True(t, weather.IsType(err, weather.ErrNetwork), "got %v", err)
	assert.Equal(t, int32(6), atomic.LoadInt32(calls))
}

func TestNotFoundDoesNotTripCircuit(t *testing.T) {
	g, calls := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 10; i++ {
		_, err := g.FetchByCity(context.Background(), "Atlantis")
		require.True(t, weather.IsType(err, weather.ErrCityNotFound))
	}
	assert.Equal(t, int32(10), atomic.LoadInt32(calls))
}
