package privacy

import (
	"math/rand"

	"github.com/meetnearby/meetnearby/internal/geo"
)

const (
	// MaxOffsetKm bounds the random displacement applied to a hidden
	// location (50 meters).
	MaxOffsetKm = 0.05

	// CircleRadiusKm is the fixed radius of the translucent indicator disc
	// drawn around a hidden user's true position.
	CircleRadiusKm = 5.0
)

// Settings holds a user's location-privacy flags. HideLocation is the
// legacy field name for HideExactLocation and is still honored on read.
type Settings struct {
	ManualLocation    bool `json:"manual_location"`
	HideExactLocation bool `json:"hide_exact_location"`
	HideLocation      bool `json:"hide_location,omitempty"`
}

// Enabled reports whether location obfuscation applies, checking both the
// current and the legacy flag.
func (s Settings) Enabled() bool {
	return s.HideExactLocation || s.HideLocation
}

// Obfuscate displaces a coordinate by a uniformly random bearing and a
// uniformly random distance in [0, MaxOffsetKm]. Not cryptographically
// secure; this is a casual visual nudge. The offset is re-randomized on
// every call, so repeated calls jitter within the 50 m circle. Callers
// that need a stable position across a render cycle must cache the result.
func Obfuscate(c geo.Coordinate) geo.Coordinate {
	bearing := rand.Float64() * 360
	distance := rand.Float64() * MaxOffsetKm
	return geo.ProjectPoint(c, distance, bearing)
}

// DisplayCoordinate returns the coordinate other viewers may see for a
// user: obfuscated when hiding is enabled and a true location exists, the
// true location when not hiding, nil when unlocated.
func DisplayCoordinate(loc *geo.Coordinate, s Settings) *geo.Coordinate {
	if loc == nil {
		return nil
	}
	if s.Enabled() {
		displaced := Obfuscate(*loc)
		return &displaced
	}
	return loc
}
