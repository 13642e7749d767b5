package tool

import "math/rand"

// Busan service-area bounding box.
const (
	MinLat = 35.05
	MaxLat = 35.30
	MinLng = 128.95
	MaxLng = 129.25
)

func InServiceArea(lat, lng float64) bool {
	return lat >= MinLat && lat <= MaxLat && lng >= MinLng && lng <= MaxLng
}

func defaultRand() float64 {
	return rand.Float64()
}

// placeholderCoordinates draws a uniform point inside the service area.
func placeholderCoordinates(rnd func() float64) (float64, float64) {
	lat := MinLat + clampFloat(rnd(), 0, 1)*(MaxLat-MinLat)
	lng := MinLng + clampFloat(rnd(), 0, 1)*(MaxLng-MinLng)
	return lat, lng
}
