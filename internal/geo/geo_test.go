package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceSeoulCityHallToGangnam(t *testing.T) {
	// Seoul City Hall to Gangnam Station, roughly 9 km.
	d := DistanceMeters(37.5665, 126.9780, 37.4979, 127.0276)
	assert.Greater(t, d, 8500.0)
	assert.Less(t, d, 9500.0)
}

func TestDistanceSymmetric(t *testing.T) {
	a := DistanceMeters(37.5665, 126.9780, 37.4979, 127.0276)
	b := DistanceMeters(37.4979, 127.0276, 37.5665, 126.9780)
	assert.Equal(t, a, b)
}

func TestDistanceIdenticalPointsIsZero(t *testing.T) {
	assert.Zero(t, DistanceMeters(37.5665, 126.9780, 37.5665, 126.9780))
	assert.Zero(t, DistanceMeters(0, 0, 0, 0))
}

func TestDistanceAntipodalNotNaN(t *testing.T) {
	d := DistanceMeters(0, 0, 0, 180)
	assert.False(t, math.IsNaN(d))
	// Half the Earth's circumference, within a kilometer.
	assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1000)

	d = DistanceMeters(90, 0, -90, 0)
	assert.False(t, math.IsNaN(d))
}

func TestDistanceNonZeroForDistinctPoints(t *testing.T) {
	assert.Greater(t, DistanceMeters(37.5665, 126.9780, 37.5665, 126.9781), 0.0)
}

func TestWithinRadius(t *testing.T) {
	assert.True(t, WithinRadius(37.5665, 126.9780, 37.4979, 127.0276, 10000))
	assert.False(t, WithinRadius(37.5665, 126.9780, 37.4979, 127.0276, 5000))
	assert.True(t, WithinRadius(37.5665, 126.9780, 37.5665, 126.9780, 0))
}
