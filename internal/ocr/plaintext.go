package ocr

import (
	"context"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// PlainText reads manifests that are already text. Files that are not valid
// UTF-8 are decoded as Windows-1252, the usual export encoding of Brazilian
// back-office systems.
type PlainText struct{}

// ExtractLines implements Extractor.
func (PlainText) ExtractLines(_ context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: read %s", path)
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrapf(err, "ocr: decode %s", path)
		}
		data = decoded
	}
	return SplitLines(string(data)), nil
}
