package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetnearby/meetnearby/internal/geo"
)

func TestSettings_Enabled(t *testing.T) {
	assert.False(t, Settings{}.Enabled())
	assert.True(t, Settings{HideExactLocation: true}.Enabled())
	assert.True(t, Settings{HideLocation: true}.Enabled(), "legacy flag must still be honored")
	assert.False(t, Settings{ManualLocation: true}.Enabled())
}

func TestObfuscate_Bound(t *testing.T) {
	origin := geo.Coordinate{Lat: 52.52, Lng: 13.405}

	var total float64
	for i := 0; i < 1000; i++ {
		moved := Obfuscate(origin)
		d := geo.DistanceKm(&origin, &moved)
		require.LessOrEqual(t, d, MaxOffsetKm+1e-9)
		total += d
	}

	assert.Greater(t, total/1000, 0.0, "mean displacement must be nonzero")
}

func TestDisplayCoordinate_Hidden(t *testing.T) {
	loc := geo.Coordinate{Lat: 0, Lng: 0}
	s := Settings{HideExactLocation: true}

	// With probability approaching one the displaced coordinate differs
	// from the true one; check over a batch rather than a single draw.
	equal := 0
	for i := 0; i < 100; i++ {
		got := DisplayCoordinate(&loc, s)
		require.NotNil(t, got)
		require.LessOrEqual(t, geo.DistanceKm(&loc, got), MaxOffsetKm+1e-9)
		if got.Lat == loc.Lat && got.Lng == loc.Lng {
			equal++
		}
	}
	assert.Less(t, equal, 100, "obfuscation must not be a no-op")
}

func TestDisplayCoordinate_Visible(t *testing.T) {
	loc := geo.Coordinate{Lat: 10, Lng: 20}

	got := DisplayCoordinate(&loc, Settings{})
	require.NotNil(t, got)
	assert.Equal(t, loc, *got, "true location must pass through unchanged")
}

func TestDisplayCoordinate_Unlocated(t *testing.T) {
	assert.Nil(t, DisplayCoordinate(nil, Settings{HideExactLocation: true}))
	assert.Nil(t, DisplayCoordinate(nil, Settings{}))
}
