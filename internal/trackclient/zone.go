package trackclient

import (
	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
)

// Zone is a geographic boundary polygon used for containment checks.
type Zone struct {
	Name   string
	Points []models.Point
}

// SchoolZone returns the default school boundary the tracker ships with.
func SchoolZone() Zone {
	return Zone{
		Name: "school",
		Points: []models.Point{
			{Lat: -25.7495, Lng: 28.2285},
			{Lat: -25.7495, Lng: 28.2315},
			{Lat: -25.7480, Lng: 28.2315},
			{Lat: -25.7480, Lng: 28.2285},
		},
	}
}

// Contains reports whether the point lies inside the polygon, by ray
// casting on the lat/lng plane. Degenerate polygons (< 3 vertices)
// contain nothing.
func (z Zone) Contains(lat, lng float64) bool {
	pts := z.Points
	if len(pts) < 3 {
		return false
	}

	inside := false
	j := len(pts) - 1
	for i := 0; i < len(pts); i++ {
		pi, pj := pts[i], pts[j]
		if (pi.Lng > lng) != (pj.Lng > lng) &&
			lat < (pj.Lat-pi.Lat)*(lng-pi.Lng)/(pj.Lng-pi.Lng)+pi.Lat {
			inside = !inside
		}
		j = i
	}
	return inside
}
