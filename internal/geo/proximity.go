package geo

import "sort"

// Candidate is anything with an identifier and a position.
type Candidate struct {
	ID        string
	Latitude  float64
	Longitude float64
}

// Ranked is a candidate annotated with its distance from the query center.
type Ranked struct {
	Candidate
	DistanceMeters float64
}

// Nearby filters candidates to those within radiusMeters of the center and
// returns them ordered by ascending distance. Distance ties break on
// candidate ID so results are reproducible.
func Nearby(centerLat, centerLon, radiusMeters float64, candidates []Candidate) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		d := DistanceMeters(centerLat, centerLon, c.Latitude, c.Longitude)
		if d <= radiusMeters {
			ranked = append(ranked, Ranked{Candidate: c, DistanceMeters: d})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].DistanceMeters != ranked[j].DistanceMeters {
			return ranked[i].DistanceMeters < ranked[j].DistanceMeters
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
