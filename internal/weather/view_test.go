package weather

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTemp(t *testing.T) {
	tests := map[float64]int{
		20.4:  20,
		20.5:  21,
		-0.4:  0,
		-2.5:  -2,
		-2.51: -3,
		0:     0,
	}
	for in, want := range tests {
		assert.Equal(t, want, RoundTemp(in), "RoundTemp(%v)", in)
	}
}

func TestNewViewEmpty(t *testing.T) {
	v := NewView(nil, nil)
	assert.Equal(t, ThemeDefault, v.Theme)
	assert.Equal(t, "—", v.Sunrise)
	assert.Empty(t, v.IconURL)
	assert.NotNil(t, v.Cards)
}

func TestNewView(t *testing.T) {
	s := &WeatherSnapshot{
		Condition: Condition{Main: "Rain", Icon: "10n"},
		Humidity:  81,
		Wind:      Wind{Speed: 4.26},
		Sunrise:   1718413200, // 01:00 UTC
		Sunset:    1718476800, // 18:40 UTC
	}

	v := NewView(s, time.UTC)
	assert.Equal(t, "https://openweathermap.org/img/wn/10n@2x.png", v.IconURL)
	assert.Equal(t, ThemeRain, v.Theme)
	assert.Equal(t, "01:00", v.Sunrise)
	assert.Equal(t, "18:40", v.Sunset)
	require.Len(t, v.Cards, 2)
	assert.Equal(t, Card{ID: "humidity", Label: "Humidity", Value: "81%"}, v.Cards[0])
	assert.Equal(t, Card{ID: "wind", Label: "Wind", Value: "4.3 m/s"}, v.Cards[1])

	moscow := time.FixedZone("MSK", 3*60*60)
	assert.Equal(t, "04:00", NewView(s, moscow).Sunrise)
}

func TestThemeFor(t *testing.T) {
	assert.Equal(t, ThemeClear, ThemeFor("Clear"))
	for _, main := range []string{"Atmosphere", "Mist", "Smoke", "Haze", "Dust", "Fog", "Sand", "Ash", "Squall", "Tornado"} {
		assert.Equal(t, ThemeAtmosphere, ThemeFor(main), main)
	}
	assert.Equal(t, ThemeDefault, ThemeFor("fog"))
	assert.Equal(t, ThemeThunderstorm, ThemeFor("Thunderstorm"))
	assert.Equal(t, ThemeDefault, ThemeFor("Volcano"))
}

func TestAppErrorChain(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := WrapAppError(cause, ErrNetwork, "No connection.")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NETWORK_ERROR: No connection. (dial tcp: refused)", err.Error())
	assert.True(t, IsType(err, ErrNetwork))
	assert.False(t, IsType(err, ErrAPI))
	assert.False(t, IsType(cause, ErrNetwork))

	wrapped := errors.Join(errors.New("outer"), err)
	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, err, got)

	assert.Equal(t, "API_ERROR: Enter a city name.", NewAppError(ErrAPI, "Enter a city name.").Error())
}
