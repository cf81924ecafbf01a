package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/ukydev/school-transit/internal/models"
)

// EarthRadiusM is the mean Earth radius used for great-circle distances.
const EarthRadiusM = 6371000.0

// ErrInvalidZone is returned for zones that fail construction validation.
var ErrInvalidZone = errors.New("invalid zone")

// Evaluation is the result of testing a point against a zone. DistanceM is
// only meaningful when HasDistance is true (circle zones); polygon containment
// is a pure inside/outside test.
type Evaluation struct {
	Inside      bool
	DistanceM   float64
	HasDistance bool
}

// ValidateZone checks a zone's geometry at construction time. Circle zones
// need a positive radius and an in-range center; polygon zones need at least
// three in-range vertices. Self-intersecting polygons and polygons crossing
// the anti-meridian are not detected.
func ValidateZone(z models.Zone) error {
	switch z.Kind {
	case models.ZoneCircle:
		if z.RadiusM <= 0 || math.IsNaN(z.RadiusM) || math.IsInf(z.RadiusM, 0) {
			return fmt.Errorf("%w: circle radius must be positive, got %v", ErrInvalidZone, z.RadiusM)
		}
		if !validCoordinate(z.Center) {
			return fmt.Errorf("%w: circle center out of range", ErrInvalidZone)
		}
	case models.ZonePolygon:
		if len(z.Vertices) < 3 {
			return fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrInvalidZone, len(z.Vertices))
		}
		for i, v := range z.Vertices {
			if !validCoordinate(v) {
				return fmt.Errorf("%w: polygon vertex %d out of range", ErrInvalidZone, i)
			}
		}
	default:
		return fmt.Errorf("%w: unknown zone kind %q", ErrInvalidZone, z.Kind)
	}
	return nil
}

// Evaluate tests whether a point lies inside a zone. For circles the test is
// boundary-inclusive: a point at exactly the radius counts as inside. The
// zone is assumed to have passed ValidateZone; unknown kinds evaluate to
// outside. Safe for concurrent use.
func Evaluate(p models.Location, z models.Zone) Evaluation {
	switch z.Kind {
	case models.ZoneCircle:
		d := Haversine(p, z.Center)
		return Evaluation{Inside: d <= z.RadiusM, DistanceM: d, HasDistance: true}
	case models.ZonePolygon:
		return Evaluation{Inside: pointInPolygon(p, z.Vertices)}
	default:
		return Evaluation{}
	}
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(a, b models.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusM * math.Asin(math.Sqrt(h))
}

// pointInPolygon runs the even-odd ray-casting test against the vertex list,
// with an implicit closing edge from the last vertex to the first.
func pointInPolygon(p models.Location, vertices []models.Location) bool {
	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		vi, vj := vertices[i], vertices[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			crossLon := (vj.Lon-vi.Lon)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lon
			if p.Lon < crossLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

func validCoordinate(l models.Location) bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) {
		return false
	}
	return l.InRange()
}
