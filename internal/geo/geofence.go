// Package geo computes great-circle distances and evaluates point records
// against a company geofence.
package geo

import (
	"math"

	"geoponto/internal/model"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371008.8

// DefaultMargin is the GPS accuracy tolerance beyond the allowed radius in
// which a reading is flagged instead of rejected.
const DefaultMargin = 50.0

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b model.Location) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Fence is the part of a company configuration the evaluation needs.
type Fence struct {
	Center model.Location
	Radius float64
	Margin float64
}

// FenceFor builds the fence of a company with the given tolerance margin.
func FenceFor(c *model.Company, margin float64) Fence {
	return Fence{Center: c.Center(), Radius: c.AllowedRadius, Margin: margin}
}

type Verdict struct {
	Distance float64
	Status   model.RecordStatus
}

// Evaluate classifies loc against the fence. A nil loc means no reading was
// captured and is always rejected. A fence without a radius accepts every
// reading.
func Evaluate(f Fence, loc *model.Location) Verdict {
	var at model.Location
	if loc != nil {
		at = *loc
	}
	d := math.Round(Distance(f.Center, at)*10) / 10

	switch {
	case loc == nil:
		return Verdict{Distance: d, Status: model.RecordStatusRejected}
	case f.Radius <= 0:
		return Verdict{Distance: d, Status: model.RecordStatusValid}
	case d <= f.Radius:
		return Verdict{Distance: d, Status: model.RecordStatusValid}
	case d <= f.Radius+f.Margin:
		return Verdict{Distance: d, Status: model.RecordStatusWarning}
	default:
		return Verdict{Distance: d, Status: model.RecordStatusRejected}
	}
}
