// Package terrain provides a smooth synthetic elevation field used to give
// each anchor a plausible altitude.
package terrain

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/wildsim/internal/fleet"
)

// Elevation band of the plains the default roster sits on, in meters.
const (
	DefaultMinAltitude = 1600.0
	DefaultMaxAltitude = 1800.0
)

// Field is a layered simplex-noise elevation map over lat/lng degrees.
type Field struct {
	noise       opensimplex.Noise
	MinAltitude float64
	MaxAltitude float64
	Frequency   float64 // Noise cycles per degree at the base octave
	Octaves     int
	Persistence float64
}

// NewField creates an elevation field seeded for a run.
func NewField(seed int64) *Field {
	return &Field{
		noise:       opensimplex.NewNormalized(seed),
		MinAltitude: DefaultMinAltitude,
		MaxAltitude: DefaultMaxAltitude,
		Frequency:   20,
		Octaves:     4,
		Persistence: 0.5,
	}
}

// Altitude returns the elevation at loc in meters.
func (f *Field) Altitude(loc fleet.Location) float64 {
	n := octaveNoise(f.noise, loc.Lng, loc.Lat, f.Octaves, f.Frequency, f.Persistence)
	return f.MinAltitude + n*(f.MaxAltitude-f.MinAltitude)
}

// octaveNoise generates fractal noise by layering multiple frequencies.
// With a normalized source the result stays in [0, 1).
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	if maxVal == 0 {
		return 0
	}
	return total / maxVal
}
