// Package model holds the data types shared by the route planning stages.
package model

import (
	"strings"
)

// Coordinate is a resolved latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether either component is unset. An origin with a zero
// component is treated as "not provided".
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 || c.Lng == 0
}

// Point is a bare coordinate used by the distance and route stages. Index 0
// of every point list is the route origin.
type Point = Coordinate

// DeliveryRecord is one manifest line resolved to a structured stop.
type DeliveryRecord struct {
	Line             int         `json:"line"`
	Sequence         string      `json:"sequence"`
	CategoryRaw      string      `json:"category_raw"`
	CategoryCode     string      `json:"category_code"`
	RouteRef         string      `json:"route_ref"`
	StreetAddress    string      `json:"street_address"`
	Neighborhood     string      `json:"neighborhood"`
	PostalCode       string      `json:"postal_code"`
	City             string      `json:"city"`
	FormattedAddress string      `json:"formatted_address"`
	Coordinate       *Coordinate `json:"coordinate,omitempty"` // nil until geocoded
	VisitOrder       *int        `json:"visit_order,omitempty"` // nil until routed
}

// FormatAddress derives the geocoding input from the address fields. It is
// the only way FormattedAddress is populated.
func FormatAddress(street, neighborhood, city, postalCode string) string {
	return strings.Join([]string{street, neighborhood, city, postalCode}, ", ")
}

// Geocoded reports whether the record carries a coordinate.
func (r DeliveryRecord) Geocoded() bool {
	return r.Coordinate != nil
}

// WithCoordinate returns a copy of r carrying c.
func (r DeliveryRecord) WithCoordinate(c Coordinate) DeliveryRecord {
	r.Coordinate = &c
	return r
}

// WithVisitOrder returns a copy of r with its visit order set.
func (r DeliveryRecord) WithVisitOrder(order int) DeliveryRecord {
	r.VisitOrder = &order
	return r
}

// DedupeKey identifies a destination for duplicate collapsing.
func (r DeliveryRecord) DedupeKey() string {
	return r.StreetAddress + "\x00" + r.Neighborhood
}
