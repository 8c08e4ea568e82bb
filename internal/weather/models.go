package weather

import (
	"math"
)

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Condition describes the weather condition as reported by OpenWeatherMap,
// e.g. Main "Clouds", Description "broken clouds", Icon "04d".
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Temperature holds integer-rounded readings in degrees Celsius.
type Temperature struct {
	Temp      int `json:"temp"`
	FeelsLike int `json:"feelsLike"`
	TempMin   int `json:"tempMin"`
	TempMax   int `json:"tempMax"`
}

// Wind speed is in m/s, direction in degrees.
type Wind struct {
	Speed float64  `json:"speed"`
	Deg   float64  `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

// WeatherSnapshot is the normalized current-conditions reading for one
// location at one point in time. A new fetch always produces a new snapshot.
type WeatherSnapshot struct {
	CityName    string      `json:"cityName"`
	Country     string      `json:"country"`
	Coordinates Coordinates `json:"coordinates"`
	Condition   Condition   `json:"condition"`
	Temperature Temperature `json:"temperature"`
	Humidity    int         `json:"humidity"`
	Pressure    int         `json:"pressure"`
	Wind        Wind        `json:"wind"`
	Sunrise     int64       `json:"sunrise"` // unix seconds
	Sunset      int64       `json:"sunset"`  // unix seconds
	UpdatedAt   int64       `json:"updatedAt"`
}

// RoundTemp rounds a temperature to the nearest integer, halves upward.
func RoundTemp(v float64) int {
	return int(math.Floor(v + 0.5))
}
