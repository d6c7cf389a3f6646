package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/route-cli/internal/model"
)

func stop(seq, street, neighborhood string, lat, lng float64, order int) model.DeliveryRecord {
	return model.DeliveryRecord{
		Sequence:         seq,
		CategoryCode:     "A-12",
		RouteRef:         "BR101",
		StreetAddress:    street,
		Neighborhood:     neighborhood,
		PostalCode:       "45600000",
		City:             "Itabuna",
		FormattedAddress: model.FormatAddress(street, neighborhood, "Itabuna", "45600000"),
	}.WithCoordinate(model.Coordinate{Lat: lat, Lng: lng}).WithVisitOrder(order)
}

func sampleRoute() Route {
	return Route{
		Origin: model.Coordinate{Lat: -14.768865, Lng: -39.255508},
		Stops: []model.DeliveryRecord{
			stop("1", "Rua A", "Centro", -14.785, -39.28, 0),
			stop("7", "Rua B, 10", "Fátima", -14.79, -39.2, 1),
		},
		DistanceMeters: 11804,
		LabelPrefix:    "Pedido",
	}
}

func TestLabel(t *testing.T) {
	r := stop("12", "Rua das Flores", "Centro", 1, 1, 0)
	assert.Equal(t, "Pedido 12 - Rua das Flores, Centro [BR101]", Label("Pedido", r))
	assert.Equal(t, "12 - Rua das Flores, Centro [BR101]", Label("", r))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	_, err = ParseFormat("kml")
	require.Error(t, err)
}

func TestFormat_ContentType(t *testing.T) {
	assert.Contains(t, CSV.ContentType(), "text/csv")
	assert.Equal(t, "application/geo+json", GeoJSON.ContentType())
	assert.Contains(t, XLSX.ContentType(), "spreadsheetml")
}

func TestDefaultFileName(t *testing.T) {
	now := time.Date(2026, 3, 9, 7, 5, 0, 0, time.UTC)
	assert.Equal(t, "rota_20260309_0705.csv", DefaultFileName(now, CSV))
	assert.Equal(t, "rota_20260309_0705.geojson", DefaultFileName(now, GeoJSON))
}

func TestRender_CSV(t *testing.T) {
	data, err := Render(CSV, sampleRoute())
	require.NoError(t, err)

	want := "Name,Latitude,Longitude\n" +
		"\"Pedido 1 - Rua A, Centro [BR101]\",-14.785,-39.28\n" +
		"\"Pedido 7 - Rua B, 10, Fátima [BR101]\",-14.79,-39.2\n"
	assert.Equal(t, want, string(data))
}

func TestRender_CSVNoStops(t *testing.T) {
	data, err := Render(CSV, Route{})
	require.NoError(t, err)
	assert.Equal(t, "Name,Latitude,Longitude\n", string(data))
}

func TestRender_MissingCoordinate(t *testing.T) {
	r := sampleRoute()
	r.Stops[1].Coordinate = nil
	_, err := Render(CSV, r)
	require.Error(t, err)
}

func TestRender_XLSX(t *testing.T) {
	data, err := Render(XLSX, sampleRoute())
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, sheetName, sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Order", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "1", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Pedido 1 - Rua A, Centro [BR101]", sheet.Rows[1].Cells[1].String())
	lat, err := sheet.Rows[2].Cells[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, -14.79, lat, 1e-9)
	assert.Equal(t, "BR101", sheet.Rows[2].Cells[5].String())
}

func TestRender_GeoJSON(t *testing.T) {
	data, err := Render(GeoJSON, sampleRoute())
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 4)

	line := fc.Features[0]
	assert.Equal(t, "LineString", line.Geometry.Type)
	var coords [][]float64
	require.NoError(t, json.Unmarshal(line.Geometry.Coordinates, &coords))
	require.Len(t, coords, 3)
	assert.Equal(t, []float64{-39.255508, -14.768865}, coords[0])
	assert.Equal(t, []float64{-39.2, -14.79}, coords[2])
	assert.InDelta(t, 11804, line.Properties["distance_m"], 0)

	assert.Equal(t, "origin", fc.Features[1].Properties["kind"])
	last := fc.Features[3]
	assert.Equal(t, "Point", last.Geometry.Type)
	assert.Equal(t, "Pedido 7 - Rua B, 10, Fátima [BR101]", last.Properties["name"])
	assert.InDelta(t, 1, last.Properties["visit_order"], 0)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rota.csv")
	require.NoError(t, WriteFile(path, CSV, sampleRoute()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Pedido 1 - Rua A")

	bad := sampleRoute()
	bad.Stops[0].Coordinate = nil
	missing := filepath.Join(t.TempDir(), "bad.csv")
	require.Error(t, WriteFile(missing, CSV, bad))
	_, err = os.Stat(missing)
	assert.True(t, os.IsNotExist(err))
}
