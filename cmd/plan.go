package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/route-cli/internal/export"
	"github.com/sells-group/route-cli/internal/model"
	"github.com/sells-group/route-cli/internal/pipeline"
)

var (
	planManifest  string
	planCodes     []string
	planCity      string
	planOriginLat float64
	planOriginLng float64
	planDedupe    bool
	planFormat    string
	planOutput    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a route for the selected category codes of a manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("plan"); err != nil {
			return err
		}

		formatName := planFormat
		if formatName == "" {
			formatName = cfg.Export.Format
		}
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}

		p, err := pipeline.FromConfig(cfg)
		if err != nil {
			return err
		}

		lines, err := readManifest(cmd.Context(), cfg.OCR, planManifest)
		if err != nil {
			return err
		}

		dedupe := cfg.Pipeline.Dedupe
		if cmd.Flags().Changed("dedupe") {
			dedupe = planDedupe
		}

		req := pipeline.Request{
			Lines:  lines,
			Codes:  splitCodes(planCodes),
			City:   planCity,
			Origin: model.Point{Lat: planOriginLat, Lng: planOriginLng},
			Dedupe: dedupe,
		}

		res, err := p.Run(cmd.Context(), req, func(done, total int) {
			zap.L().Debug("geocoding progress", zap.Int("done", done), zap.Int("total", total))
		})

		out := cmd.OutOrStdout()
		if res != nil {
			writeSummary(out, res)
		}
		if outcome := pipeline.OutcomeOf(err); outcome != "" && outcome != pipeline.OutcomeRouted {
			return eris.New(outcomeMessage(outcome))
		}
		if err != nil {
			return err
		}

		path := planOutput
		if path == "" {
			path = export.DefaultFileName(time.Now(), format)
		}
		if err := export.WriteFile(path, format, res.Route(cfg.Export.LabelPrefix)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Route written to %s\n", path)
		return nil
	},
}

// splitCodes accepts both repeated flags and comma-separated lists.
func splitCodes(values []string) []string {
	var codes []string
	for _, v := range values {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				codes = append(codes, c)
			}
		}
	}
	return codes
}

func outcomeMessage(o pipeline.Outcome) string {
	switch o {
	case pipeline.OutcomeEmptyParse:
		return "no delivery records were found in the manifest"
	case pipeline.OutcomeEmptySelection:
		return "no category codes selected; run `route-cli codes` to list them"
	case pipeline.OutcomeEmptyFilter:
		return "no records match the selected codes and city"
	case pipeline.OutcomeNoResolvableStops:
		return "no stop could be geocoded; nothing to route"
	case pipeline.OutcomeRouteInfeasible:
		return "no feasible route was found for the geocoded stops"
	default:
		return string(o)
	}
}

func writeSummary(w io.Writer, res *pipeline.Result) {
	c := res.Counts
	fmt.Fprintf(w, "Run %s\n", res.RunID)
	fmt.Fprintf(w, "Records: %d parsed, %d selected, %d after dedupe\n", c.Parsed, c.Filtered, c.Deduplicated)
	fmt.Fprintf(w, "Geocoded: %d, discarded: %d\n", c.Geocoded, c.Discarded)
	for _, u := range res.Unresolved {
		fmt.Fprintf(w, "  discarded line %d (seq %s): %s [%s]\n",
			u.Record.Line, u.Record.Sequence, u.Record.FormattedAddress, u.Reason)
	}
	for _, d := range res.Dropped {
		fmt.Fprintf(w, "  duplicate line %d (seq %s): %s\n", d.Line, d.Sequence, d.FormattedAddress)
	}
	if res.Outcome == pipeline.OutcomeRouted {
		fmt.Fprintf(w, "Route: %d stops, %.1f km\n", len(res.Records), float64(res.DistanceMeters)/1000)
	}
}

func init() {
	planCmd.Flags().StringVar(&planManifest, "manifest", "", "manifest file (PDF, text or XLSX)")
	planCmd.Flags().StringSliceVar(&planCodes, "codes", nil, "category codes to route, e.g. A-12,A-13")
	planCmd.Flags().StringVar(&planCity, "city", "", "only route records in this city")
	planCmd.Flags().Float64Var(&planOriginLat, "origin-lat", 0, "depot latitude (default from config)")
	planCmd.Flags().Float64Var(&planOriginLng, "origin-lng", 0, "depot longitude (default from config)")
	planCmd.Flags().BoolVar(&planDedupe, "dedupe", false, "collapse records with the same street and neighborhood")
	planCmd.Flags().StringVar(&planFormat, "format", "", "export format: csv, xlsx or geojson (default from config)")
	planCmd.Flags().StringVar(&planOutput, "output", "", "export path (default rota_YYYYMMDD_HHMM.<ext>)")
	_ = planCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(planCmd)
}
