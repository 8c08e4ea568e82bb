package weather

import (
	"fmt"
	"time"
)

const iconURLTemplate = "https://openweathermap.org/img/wn/%s@2x.png"

// Theme keys understood by the UI. Unknown conditions get ThemeDefault.
const (
	ThemeClear        = "clear"
	ThemeClouds       = "clouds"
	ThemeAtmosphere   = "atmosphere"
	ThemeDrizzle      = "drizzle"
	ThemeRain         = "rain"
	ThemeSnow         = "snow"
	ThemeThunderstorm = "thunderstorm"
	ThemeDefault      = "default"
)

// Card is a single detail tile shown under the main reading.
type Card struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// View is the presentation model derived from a snapshot.
type View struct {
	IconURL string `json:"iconUrl"`
	Theme   string `json:"theme"`
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
	Cards   []Card `json:"cards"`
}

// IconURL returns the OpenWeatherMap image URL for an icon code like "01d".
func IconURL(code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf(iconURLTemplate, code)
}

// ThemeFor maps an OpenWeatherMap "main" condition group to a theme key.
func ThemeFor(main string) string {
	switch main {
	case "Clear":
		return ThemeClear
	case "Clouds":
		return ThemeClouds
	// Atmosphere-group conditions arrive under their own main value.
	case "Atmosphere", "Mist", "Smoke", "Haze", "Dust", "Fog", "Sand", "Ash", "Squall", "Tornado":
		return ThemeAtmosphere
	case "Drizzle":
		return ThemeDrizzle
	case "Rain":
		return ThemeRain
	case "Snow":
		return ThemeSnow
	case "Thunderstorm":
		return ThemeThunderstorm
	default:
		return ThemeDefault
	}
}

// FormatClock renders a unix timestamp as HH:MM in loc.
func FormatClock(unix int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(unix, 0).In(loc).Format("15:04")
}

// NewView builds the presentation model. A nil snapshot yields placeholders.
func NewView(s *WeatherSnapshot, loc *time.Location) View {
	if s == nil {
		return View{Theme: ThemeDefault, Sunrise: "—", Sunset: "—", Cards: []Card{}}
	}
	return View{
		IconURL: IconURL(s.Condition.Icon),
		Theme:   ThemeFor(s.Condition.Main),
		Sunrise: FormatClock(s.Sunrise, loc),
		Sunset:  FormatClock(s.Sunset, loc),
		Cards: []Card{
			{ID: "humidity", Label: "Humidity", Value: fmt.Sprintf("%d%%", s.Humidity)},
			{ID: "wind", Label: "Wind", Value: fmt.Sprintf("%.1f m/s", s.Wind.Speed)},
		},
	}
}
