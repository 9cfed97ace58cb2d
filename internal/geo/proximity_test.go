package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearbyFiltersAndSortsAscending(t *testing.T) {
	candidates := []Candidate{
		{ID: "gangnam", Latitude: 37.4979, Longitude: 127.0276},
		{ID: "cityhall", Latitude: 37.5665, Longitude: 126.9780},
		{ID: "busan", Latitude: 35.1796, Longitude: 129.0756},
		{ID: "jongno", Latitude: 37.5729, Longitude: 126.9794},
	}

	ranked := Nearby(37.5665, 126.9780, 20000, candidates)

	require.Len(t, ranked, 3) // Busan is out of range
	assert.Equal(t, "cityhall", ranked[0].ID)
	assert.Equal(t, "jongno", ranked[1].ID)
	assert.Equal(t, "gangnam", ranked[2].ID)
	assert.Zero(t, ranked[0].DistanceMeters)
}

func TestNearbyTiesBreakOnID(t *testing.T) {
	candidates := []Candidate{
		{ID: "b", Latitude: 37.5, Longitude: 127.0},
		{ID: "a", Latitude: 37.5, Longitude: 127.0},
		{ID: "c", Latitude: 37.5, Longitude: 127.0},
	}

	ranked := Nearby(37.5, 127.0, 100, candidates)

	require.Len(t, ranked, 3)
	assert.Equal(t, "a", ranked[0].ID)
	assert.Equal(t, "b", ranked[1].ID)
	assert.Equal(t, "c", ranked[2].ID)
}

func TestNearbyEmptyWhenNothingInRange(t *testing.T) {
	candidates := []Candidate{{ID: "busan", Latitude: 35.1796, Longitude: 129.0756}}
	assert.Empty(t, Nearby(37.5665, 126.9780, 1000, candidates))
}
