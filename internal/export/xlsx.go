package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

const sheetName = "Rota"

var xlsxColumns = []string{"Order", "Name", "Latitude", "Longitude", "Category", "Route Ref", "Postal Code"}

func writeXLSX(w io.Writer, route Route) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range xlsxColumns {
		header.AddCell().SetString(c)
	}

	for i, s := range route.Stops {
		row := sheet.AddRow()
		order := i + 1
		if s.VisitOrder != nil {
			order = *s.VisitOrder + 1
		}
		row.AddCell().SetInt(order)
		row.AddCell().SetString(Label(route.LabelPrefix, s))
		row.AddCell().SetFloat(s.Coordinate.Lat)
		row.AddCell().SetFloat(s.Coordinate.Lng)
		row.AddCell().SetString(s.CategoryCode)
		row.AddCell().SetString(s.RouteRef)
		row.AddCell().SetString(s.PostalCode)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx export: write")
	}
	return nil
}
