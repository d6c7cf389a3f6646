package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// writeGeoJSON emits the route line from the origin through every stop,
// the origin point and one point per stop.
func writeGeoJSON(w io.Writer, route Route) error {
	coords := make([]float64, 0, 2*(len(route.Stops)+1))
	coords = append(coords, route.Origin.Lng, route.Origin.Lat)
	for _, s := range route.Stops {
		coords = append(coords, s.Coordinate.Lng, s.Coordinate.Lat)
	}

	features := make([]*geojson.Feature, 0, len(route.Stops)+2)
	if len(route.Stops) > 0 {
		features = append(features, &geojson.Feature{
			ID:       "route",
			Geometry: geom.NewLineStringFlat(geom.XY, coords),
			Properties: map[string]any{
				"kind":       "route",
				"distance_m": route.DistanceMeters,
				"stops":      len(route.Stops),
			},
		})
	}
	features = append(features, &geojson.Feature{
		ID:         "origin",
		Geometry:   geom.NewPointFlat(geom.XY, []float64{route.Origin.Lng, route.Origin.Lat}),
		Properties: map[string]any{"kind": "origin"},
	})

	for i, s := range route.Stops {
		order := i
		if s.VisitOrder != nil {
			order = *s.VisitOrder
		}
		features = append(features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{s.Coordinate.Lng, s.Coordinate.Lat}),
			Properties: map[string]any{
				"kind":        "stop",
				"name":        Label(route.LabelPrefix, s),
				"visit_order": order,
				"sequence":    s.Sequence,
				"category":    s.CategoryCode,
				"route_ref":   s.RouteRef,
				"address":     s.FormattedAddress,
			},
		})
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(&geojson.FeatureCollection{Features: features}); err != nil {
		return eris.Wrap(err, "geojson export: encode")
	}
	return nil
}
