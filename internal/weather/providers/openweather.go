package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// DefaultOpenWeatherURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherConfig configures the OpenWeatherMap gateway.
type OpenWeatherConfig struct {
	APIKey  string
	BaseURL string
	Lang    string
}

// OpenWeatherGateway implements weather.Gateway for the OpenWeatherMap
// current-conditions endpoint.
type OpenWeatherGateway struct {
	name    string
	apiKey  string
	baseURL string
	lang    string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

var _ weather.Gateway = (*OpenWeatherGateway)(nil)

func NewOpenWeatherGateway(client *http.Client, cfg OpenWeatherConfig) *OpenWeatherGateway {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	lang := cfg.Lang
	if lang == "" {
		lang = "en"
	}

	return &OpenWeatherGateway{
		name:    "openweathermap",
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		lang:    lang,
		client:  client,
		circuit: newCircuitBreaker("openweather"),
	}
}

// FetchByCoordinates returns current conditions at coords.
func (g *OpenWeatherGateway) FetchByCoordinates(ctx context.Context, coords weather.Coordinates) (weather.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	return g.fetch(ctx, values)
}

// FetchByCity returns current conditions for a free-text city name. Blank
// names are rejected without a request.
func (g *OpenWeatherGateway) FetchByCity(ctx context.Context, city string) (weather.WeatherSnapshot, error) {
	trimmed := strings.TrimSpace(city)
	if trimmed == "" {
		return weather.WeatherSnapshot{}, weather.NewAppError(weather.ErrAPI, "Enter a city name.")
	}

	values := url.Values{}
	values.Set("q", trimmed)
	return g.fetch(ctx, values)
}

func (g *OpenWeatherGateway) fetch(ctx context.Context, values url.Values) (weather.WeatherSnapshot, error) {
	if g.apiKey == "" {
		return weather.WeatherSnapshot{}, weather.NewAppError(weather.ErrAPI, "Weather API key is not configured.")
	}

	values.Set("appid", g.apiKey)
	values.Set("units", "metric")
	values.Set("lang", g.lang)

	u := fmt.Sprintf("%s/weather?%s", g.baseURL, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return weather.WeatherSnapshot{}, classifyError(err)
	}

	resp, err := doRequest(ctx, g.client, g.circuit, req)
	if err != nil {
		appErr := classifyError(err)
		logger.GetLogger().Warnw("openweather request failed",
			"provider", g.name,
			"type", appErr.Type,
			"error", err,
		)
		return weather.WeatherSnapshot{}, appErr
	}
	defer resp.Body.Close()

	var payload currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.WeatherSnapshot{}, classifyError(fmt.Errorf("decode openweather response: %w", err))
	}

	return payload.normalize(), nil
}

// currentWeatherResponse mirrors the /weather payload fields we read.
type currentWeatherResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64  `json:"speed"`
		Deg   float64  `json:"deg"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
}

func (p currentWeatherResponse) normalize() weather.WeatherSnapshot {
	var cond weather.Condition
	if len(p.Weather) > 0 {
		w := p.Weather[0]
		cond = weather.Condition{ID: w.ID, Main: w.Main, Description: w.Description, Icon: w.Icon}
	}

	return weather.WeatherSnapshot{
		CityName:    p.Name,
		Country:     p.Sys.Country,
		Coordinates: weather.Coordinates{Lat: p.Coord.Lat, Lon: p.Coord.Lon},
		Condition:   cond,
		Temperature: weather.Temperature{
			Temp:      weather.RoundTemp(p.Main.Temp),
			FeelsLike: weather.RoundTemp(p.Main.FeelsLike),
			TempMin:   weather.RoundTemp(p.Main.TempMin),
			TempMax:   weather.RoundTemp(p.Main.TempMax),
		},
		Humidity: p.Main.Humidity,
		Pressure: p.Main.Pressure,
		Wind: weather.Wind{
			Speed: p.Wind.Speed,
			Deg:   p.Wind.Deg,
			Gust:  p.Wind.Gust,
		},
		Sunrise:   p.Sys.Sunrise,
		Sunset:    p.Sys.Sunset,
		UpdatedAt: p.Dt,
	}
}
