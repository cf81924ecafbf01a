package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/school-transit/internal/models"
)

func circle(lat, lon, radius float64) models.Zone {
	return models.Zone{
		Kind:    models.ZoneCircle,
		Center:  models.Location{Lat: lat, Lon: lon},
		RadiusM: radius,
	}
}

func square(halfDeg float64) models.Zone {
	return models.Zone{
		Kind: models.ZonePolygon,
		Vertices: []models.Location{
			{Lat: -halfDeg, Lon: -halfDeg},
			{Lat: -halfDeg, Lon: halfDeg},
			{Lat: halfDeg, Lon: halfDeg},
			{Lat: halfDeg, Lon: -halfDeg},
		},
	}
}

func TestEvaluate_CircleCenter(t *testing.T) {
	// School gate zone in Nairobi
	z := circle(-1.2864, 36.8172, 500)

	ev := Evaluate(models.Location{Lat: -1.2864, Lon: 36.8172}, z)
	assert.True(t, ev.Inside)
	assert.True(t, ev.HasDistance)
	assert.InDelta(t, 0, ev.DistanceM, 0.001)
}

func TestEvaluate_CircleBoundaryInclusive(t *testing.T) {
	center := models.Location{Lat: 0, Lon: 0}
	p := models.Location{Lat: 0, Lon: 0.01}
	d := Haversine(center, p)

	z := circle(0, 0, d)
	ev := Evaluate(p, z)
	assert.True(t, ev.Inside, "point at exactly the radius must be inside")

	z.RadiusM = d - 0.5
	assert.False(t, Evaluate(p, z).Inside)
}

func TestEvaluate_CircleOutside(t *testing.T) {
	z := circle(-1.2864, 36.8172, 500)
	ev := Evaluate(models.Location{Lat: -1.30, Lon: 36.90}, z)
	assert.False(t, ev.Inside)
	assert.Greater(t, ev.DistanceM, 500.0)
}

func TestEvaluate_PolygonSquare(t *testing.T) {
	z := square(1)

	inside := Evaluate(models.Location{Lat: 0.5, Lon: 0.5}, z)
	assert.True(t, inside.Inside)
	assert.False(t, inside.HasDistance, "polygon evaluation carries no distance")

	outside := Evaluate(models.Location{Lat: 2, Lon: 2}, z)
	assert.False(t, outside.Inside)
}

func TestEvaluate_PolygonFarOutsideBoundingBox(t *testing.T) {
	z := square(1)
	assert.False(t, Evaluate(models.Location{Lat: 45, Lon: -120}, z).Inside)
}

func TestEvaluate_ConvexPolygonInterior(t *testing.T) {
	// Triangle around the origin
	z := models.Zone{
		Kind: models.ZonePolygon,
		Vertices: []models.Location{
			{Lat: 2, Lon: 0},
			{Lat: -1, Lon: 2},
			{Lat: -1, Lon: -2},
		},
	}
	assert.True(t, Evaluate(models.Location{Lat: 0, Lon: 0}, z).Inside)
	assert.False(t, Evaluate(models.Location{Lat: 2, Lon: 2}, z).Inside)
}

func TestHaversine_KnownDistance(t *testing.T) {
	// One degree of longitude at the equator is ~111.19 km
	d := Haversine(models.Location{Lat: 0, Lon: 0}, models.Location{Lat: 0, Lon: 1})
	assert.InDelta(t, 111195, d, 100)
}

func TestValidateZone(t *testing.T) {
	tests := []struct {
		name    string
		zone    models.Zone
		wantErr bool
	}{
		{"valid circle", circle(-1.28, 36.81, 250), false},
		{"zero radius", circle(-1.28, 36.81, 0), true},
		{"negative radius", circle(-1.28, 36.81, -10), true},
		{"nan radius", circle(-1.28, 36.81, math.NaN()), true},
		{"center out of range", circle(95, 36.81, 100), true},
		{"valid polygon", square(1), false},
		{"two vertices", models.Zone{Kind: models.ZonePolygon, Vertices: []models.Location{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}}, true},
		{"vertex out of range", models.Zone{Kind: models.ZonePolygon, Vertices: []models.Location{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 181}, {Lat: 1, Lon: 0}}}, true},
		{"unknown kind", models.Zone{Kind: "blob"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateZone(tt.zone)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidZone)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
