// Package geo provides great-circle distance computation and deterministic
// candidate ranking for incident routing.
package geo

import (
	"math"
	"sort"

	"github.com/emberwatch/firedispatch/internal/domain"
)

const earthRadiusKM = 6371.0

// DistanceKM returns the haversine distance between two points in kilometers.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// ValidCoordinates reports whether the pair is a finite, in-range position.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Ranker produces an ordered candidate list for an incident position.
// It is a pure function of the position and the department set.
type Ranker struct {
	// MaxCandidates caps the ranked snapshot. Zero means no cap.
	MaxCandidates int
}

// Rank returns departments ordered ascending by distance from the incident
// position. Departments with invalid coordinates are skipped. Equal
// distances are broken by department id so the ordering is deterministic.
func (r Ranker) Rank(lat, lon float64, departments []*domain.Department) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(departments))
	for _, dept := range departments {
		if !ValidCoordinates(dept.Latitude, dept.Longitude) {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			DepartmentID: dept.ID,
			DistanceKM:   DistanceKM(lat, lon, dept.Latitude, dept.Longitude),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKM != candidates[j].DistanceKM {
			return candidates[i].DistanceKM < candidates[j].DistanceKM
		}
		return candidates[i].DepartmentID.String() < candidates[j].DepartmentID.String()
	})

	if r.MaxCandidates > 0 && len(candidates) > r.MaxCandidates {
		candidates = candidates[:r.MaxCandidates]
	}
	return candidates
}
