package weather

import (
	"context"
)

// Gateway fetches current conditions and normalizes them into a
// WeatherSnapshot. Failures are always returned as *AppError.
type Gateway interface {
	FetchByCoordinates(ctx context.Context, coords Coordinates) (WeatherSnapshot, error)
	FetchByCity(ctx context.Context, city string) (WeatherSnapshot, error)
}
