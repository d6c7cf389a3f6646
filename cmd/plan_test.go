package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/route-cli/internal/config"
	"github.com/sells-group/route-cli/internal/geocoding"
	"github.com/sells-group/route-cli/internal/model"
	"github.com/sells-group/route-cli/internal/pipeline"
)

const testManifest = `MANIFESTO DE ENTREGAS
1 A-12 BR101 Rua A  Centro 45600000 Itabuna
2 A-12 BR101 Rua B  São Caetano 45607000 Itabuna
3 B-7 BR102 Rua C  Centro 45600000 Itabuna
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(geocodeURL string) *config.Config {
	return &config.Config{
		Log: config.LogConfig{Level: "info", Format: "json"},
		Geocode: config.GeocodeConfig{
			Provider:    "nominatim",
			BaseURL:     geocodeURL,
			UserAgent:   "route-cli-test",
			MaxAttempts: 1,
		},
		Route:    config.RouteConfig{Strategy: "cheapest-arc"},
		Pipeline: config.PipelineConfig{DefaultOriginLat: -14.768865, DefaultOriginLng: -39.255508},
		OCR:      config.OCRConfig{Provider: "text"},
		Export:   config.ExportConfig{Format: "csv", LabelPrefix: "Pedido"},
		Server:   config.ServerConfig{Port: 8080, MaxUploadMB: 1},
	}
}

// fakeNominatim answers every search with a coordinate derived from the
// street so each stop lands somewhere different.
func fakeNominatim(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query().Get("q")
		lat := "-14.80"
		if strings.HasPrefix(q, "Rua B") {
			lat = "-14.78"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]string{{"lat": lat, "lon": "-39.26", "display_name": q}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func resetPlanFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		planManifest, planCity, planFormat, planOutput = "", "", "", ""
		planCodes = nil
		planOriginLat, planOriginLng = 0, 0
		planDedupe = false
	})
}

func TestCodesCmd_ListsCodes(t *testing.T) {
	cfg = testConfig("")
	codesManifest = writeManifest(t, testManifest)
	defer func() { codesManifest = "" }()

	var out bytes.Buffer
	codesCmd.SetOut(&out)
	codesCmd.SetContext(context.Background())
	defer codesCmd.SetOut(nil)

	require.NoError(t, codesCmd.RunE(codesCmd, nil))
	assert.Equal(t, "A-12\t2\nB-7\t1\n", out.String())
}

func TestCodesCmd_EmptyManifest(t *testing.T) {
	cfg = testConfig("")
	codesManifest = writeManifest(t, "nothing to see\n")
	defer func() { codesManifest = "" }()

	codesCmd.SetContext(context.Background())
	err := codesCmd.RunE(codesCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no delivery records")
}

func TestPlanCmd_WritesExport(t *testing.T) {
	resetPlanFlags(t)
	srv := fakeNominatim(t)
	cfg = testConfig(srv.URL)

	planManifest = writeManifest(t, testManifest)
	planCodes = []string{"a-12"}
	planOutput = filepath.Join(t.TempDir(), "route.csv")

	var out bytes.Buffer
	planCmd.SetOut(&out)
	planCmd.SetContext(context.Background())
	defer planCmd.SetOut(nil)

	require.NoError(t, planCmd.RunE(planCmd, nil))
	assert.Contains(t, out.String(), "Geocoded: 2, discarded: 0")
	assert.Contains(t, out.String(), "Route: 2 stops")

	data, err := os.ReadFile(planOutput)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Latitude,Longitude", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"Pedido 2 - Rua B, São Caetano [BR101]"`), lines[1])
}

func TestPlanCmd_EmptyFilter(t *testing.T) {
	resetPlanFlags(t)
	cfg = testConfig("http://127.0.0.1:1")

	planManifest = writeManifest(t, testManifest)
	planCodes = []string{"Z-99"}
	planOutput = filepath.Join(t.TempDir(), "route.csv")

	var out bytes.Buffer
	planCmd.SetOut(&out)
	planCmd.SetContext(context.Background())
	defer planCmd.SetOut(nil)

	err := planCmd.RunE(planCmd, nil)
	require.Error(t, err)
	assert.Equal(t, outcomeMessage(pipeline.OutcomeEmptyFilter), err.Error())
	assert.Contains(t, out.String(), "3 parsed, 0 selected")
	assert.NoFileExists(t, planOutput)
}

func TestPlanCmd_InvalidFormat(t *testing.T) {
	resetPlanFlags(t)
	cfg = testConfig("")
	planManifest = writeManifest(t, testManifest)
	planFormat = "kml"

	planCmd.SetContext(context.Background())
	assert.Error(t, planCmd.RunE(planCmd, nil))
}

func TestSplitCodes(t *testing.T) {
	assert.Equal(t, []string{"A-12", "A-13", "B-1"}, splitCodes([]string{"A-12, A-13", " ", "B-1"}))
	assert.Nil(t, splitCodes(nil))
}

func TestOutcomeMessage_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for _, o := range []pipeline.Outcome{
		pipeline.OutcomeEmptyParse,
		pipeline.OutcomeEmptySelection,
		pipeline.OutcomeEmptyFilter,
		pipeline.OutcomeNoResolvableStops,
		pipeline.OutcomeRouteInfeasible,
	} {
		msg := outcomeMessage(o)
		assert.False(t, seen[msg], "duplicate message for %s", o)
		seen[msg] = true
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	writeSummary(&buf, &pipeline.Result{
		RunID:   "run-1",
		Outcome: pipeline.OutcomeNoResolvableStops,
		Counts:  pipeline.Counts{Parsed: 3, Filtered: 1, Deduplicated: 1, Discarded: 1},
		Unresolved: []geocoding.UnresolvedRecord{{
			Record: model.DeliveryRecord{Line: 2, Sequence: "1", FormattedAddress: "Rua A, Centro, Itabuna, 45600000"},
			Reason: geocoding.ReasonTimeout,
		}},
	})

	out := buf.String()
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "discarded line 2 (seq 1): Rua A, Centro, Itabuna, 45600000 [timeout]")
	assert.NotContains(t, out, "Route:")
}
