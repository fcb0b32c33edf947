package geo

import "math"

const EarthRadiusKm = 6371.0

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm is the great-circle distance between two points using the
// spherical law of cosines.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	c := math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Cos(radians(lng2)-radians(lng1)) +
		math.Sin(radians(lat1))*math.Sin(radians(lat2))
	// Rounding can push c just outside [-1, 1] for identical points.
	c = math.Max(-1, math.Min(1, c))
	return EarthRadiusKm * math.Acos(c)
}

// Box is a lat/lng rectangle that contains every point within a radius.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a box around (lat, lng) that covers radiusKm. Near the
// poles the longitude span widens to the full range.
func BoundingBox(lat, lng, radiusKm float64) Box {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi
	b := Box{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}
	cosLat := math.Cos(radians(lat))
	if cosLat > 1e-6 {
		dLng := dLat / cosLat
		if dLng < 180 {
			b.MinLng = lng - dLng
			b.MaxLng = lng + dLng
		}
	}
	return b
}

// LngRange is a closed longitude interval inside [-180, 180].
type LngRange struct {
	Min, Max float64
}

// LngRanges splits the box's longitude span at the antimeridian. A box that
// stays inside [-180, 180] yields one range, one that crosses it yields two.
func (b Box) LngRanges() []LngRange {
	switch {
	case b.MaxLng-b.MinLng >= 360:
		return []LngRange{{-180, 180}}
	case b.MinLng < -180:
		return []LngRange{{b.MinLng + 360, 180}, {-180, b.MaxLng}}
	case b.MaxLng > 180:
		return []LngRange{{b.MinLng, 180}, {-180, b.MaxLng - 360}}
	}
	return []LngRange{{b.MinLng, b.MaxLng}}
}
