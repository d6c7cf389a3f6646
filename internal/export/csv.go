package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
)

// csvColumns is the header consumed by map importers.
var csvColumns = []string{"Name", "Latitude", "Longitude"}

func writeCSV(w io.Writer, route Route) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvColumns); err != nil {
		return eris.Wrap(err, "csv export: write header")
	}
	for _, s := range route.Stops {
		row := []string{
			Label(route.LabelPrefix, s),
			formatCoord(s.Coordinate.Lat),
			formatCoord(s.Coordinate.Lng),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "csv export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "csv export: flush")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
