package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoredLocation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *Coordinate
	}{
		{"point text", "(13.405,52.52)", &Coordinate{52.52, 13.405}},
		{"point text with spaces", "( 13.405 , 52.52 )", &Coordinate{52.52, 13.405}},
		{"wkt", "POINT(13.405 52.52)", &Coordinate{52.52, 13.405}},
		{"wkt lowercase", "point(13.405 52.52)", &Coordinate{52.52, 13.405}},
		{"json short", `{"lat":52.52,"lng":13.405}`, &Coordinate{52.52, 13.405}},
		{"json long", `{"latitude":52.52,"longitude":13.405}`, &Coordinate{52.52, 13.405}},
		{"negative values", "(-0.1278,51.5074)", &Coordinate{51.5074, -0.1278}},
		{"garbage", "garbage", nil},
		{"empty", "", nil},
		{"whitespace", "   ", nil},
		{"half a pair", "(13.405)", nil},
		{"non numeric", "(a,b)", nil},
		{"json missing field", `{"lat":52.52}`, nil},
		{"json malformed", `{"lat":`, nil},
		{"out of range lat", "(13.405,152.52)", nil},
		{"out of range lng", "POINT(213 10)", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseStoredLocation(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want.Lat, got.Lat, 1e-9)
			assert.InDelta(t, tt.want.Lng, got.Lng, 1e-9)
		})
	}
}

func TestFormatForStorage_RoundTrip(t *testing.T) {
	coords := []Coordinate{
		{52.52, 13.405},
		{0, 0},
		{-33.8688, 151.2093},
	}

	for _, c := range coords {
		parsed := ParseStoredLocation(FormatForStorage(c))
		require.NotNil(t, parsed)
		assert.InDelta(t, c.Lat, parsed.Lat, 1e-9)
		assert.InDelta(t, c.Lng, parsed.Lng, 1e-9)
	}
}
