// Package ocr turns manifest documents (PDF, plain text or spreadsheet) into
// text lines.
package ocr

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/route-cli/internal/config"
)

// Extractor reads a document and returns its text lines in reading order.
// Lines are trimmed; blank lines are kept as empty strings so line numbers
// stay meaningful.
type Extractor interface {
	ExtractLines(ctx context.Context, path string) ([]string, error)
}

// NewExtractor creates an Extractor based on config. Text and spreadsheet
// files are always read directly; the provider picks how PDFs are read.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	auto := &Auto{Text: PlainText{}, Sheet: Spreadsheet{}}
	switch cfg.Provider {
	case "local", "":
		auto.PDF = NewPdfToText(cfg.PdfToTextPath)
	case "text":
		auto.PDF = PlainText{}
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		auto.PDF = NewMistralOCR(cfg.MistralKey, cfg.MistralModel)
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
	return auto, nil
}

// Auto dispatches on the file extension.
type Auto struct {
	PDF   Extractor
	Text  Extractor
	Sheet Extractor
}

// ExtractLines implements Extractor.
func (a *Auto) ExtractLines(ctx context.Context, path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".csv":
		return a.Text.ExtractLines(ctx, path)
	case ".xlsx":
		return a.Sheet.ExtractLines(ctx, path)
	default:
		return a.PDF.ExtractLines(ctx, path)
	}
}

// SplitLines splits extracted text into trimmed lines. Form feeds, which
// pdftotext emits between pages, count as line breaks.
func SplitLines(text string) []string {
	text = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n").Replace(text)
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}
