// Package export renders a solved route as CSV, XLSX or GeoJSON.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/route-cli/internal/model"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	CSV     Format = "csv"
	XLSX    Format = "xlsx"
	GeoJSON Format = "geojson"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, XLSX, GeoJSON:
		return f, nil
	case "":
		return CSV, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case GeoJSON:
		return "application/geo+json"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Route is a solved route ready for rendering. Stops are in visit order and
// every stop carries a coordinate.
type Route struct {
	Origin         model.Coordinate
	Stops          []model.DeliveryRecord
	DistanceMeters int64
	LabelPrefix    string
}

// Label renders the display name of a stop:
// "<prefix> <sequence> - <street>, <neighborhood> [<route ref>]".
func Label(prefix string, r model.DeliveryRecord) string {
	name := fmt.Sprintf("%s - %s, %s [%s]", r.Sequence, r.StreetAddress, r.Neighborhood, r.RouteRef)
	if prefix == "" {
		return name
	}
	return prefix + " " + name
}

// DefaultFileName returns rota_YYYYMMDD_HHMM.<ext> for now.
func DefaultFileName(now time.Time, f Format) string {
	return fmt.Sprintf("rota_%s.%s", now.Format("20060102_1504"), f.Extension())
}

// Write renders route in format f to w.
func Write(w io.Writer, f Format, route Route) error {
	for i, s := range route.Stops {
		if s.Coordinate == nil {
			return eris.Errorf("export: stop %d (%s) has no coordinate", i, s.Sequence)
		}
	}

	switch f {
	case CSV:
		return writeCSV(w, route)
	case XLSX:
		return writeXLSX(w, route)
	case GeoJSON:
		return writeGeoJSON(w, route)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// Render renders route into memory.
func Render(f Format, route Route) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f, route); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders route to path. The file is only created once rendering
// has succeeded.
func WriteFile(path string, f Format, route Route) error {
	data, err := Render(f, route)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
