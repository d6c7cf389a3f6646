// Package distance builds great-circle distance matrices over coordinates.
package distance

import (
	"math"

	"github.com/sells-group/route-cli/internal/model"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0088

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b model.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Meters converts a distance in kilometers to whole meters, truncating.
func Meters(km float64) int64 {
	return int64(math.Floor(km * 1000))
}

// Matrix returns the (N+1)×(N+1) matrix of truncated meter distances over
// origin followed by stops. Each pair is computed once and mirrored, so the
// result is symmetric with a zero diagonal.
func Matrix(origin model.Point, stops []model.Point) [][]int64 {
	points := make([]model.Point, 0, len(stops)+1)
	points = append(points, origin)
	points = append(points, stops...)

	n := len(points)
	m := make([][]int64, n)
	for i := range m {
		m[i] = make([]int64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := Meters(Haversine(points[i], points[j]))
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}
