package lookup

import (
	"github.com/i474232898/weather-lookup/internal/weather"
)

// Status is the orchestrator's loading status. Exactly one is live at a time.
type Status string

const (
	StatusIdle           Status = "IDLE"
	StatusLoadingGeo     Status = "LOADING_GEO"
	StatusLoadingWeather Status = "LOADING_WEATHER"
	StatusSuccess        Status = "SUCCESS"
	StatusError          Status = "ERROR"
)

// State is an immutable copy of the orchestrator fields taken at one
// transition. Weather and Error point at values that are never mutated.
type State struct {
	Status      Status                   `json:"status"`
	Weather     *weather.WeatherSnapshot `json:"weather"`
	Error       *weather.AppError        `json:"error"`
	SearchQuery string                   `json:"searchQuery"`
	IsLoading   bool                     `json:"isLoading"`
}
