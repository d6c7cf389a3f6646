package ocr

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool, one page at
// a time so page order is explicit.
type PdfToText struct {
	binPath   string
	pageCount func(rs io.ReadSeeker) (int, error)
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath, pageCount: pdfcpuPageCount}
}

func pdfcpuPageCount(rs io.ReadSeeker) (int, error) {
	return api.PageCount(rs, nil)
}

// ExtractLines implements Extractor.
func (p *PdfToText) ExtractLines(ctx context.Context, pdfPath string) ([]string, error) {
	text, err := p.ExtractText(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	return SplitLines(text), nil
}

// ExtractText runs pdftotext -layout on every page of the PDF and returns
// the pages joined by newlines. When the page count cannot be read the whole
// document is converted in one call. An unreadable file is an error.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read PDF %s", pdfPath)
	}

	pages := 0
	if n, countErr := p.pageCount(bytes.NewReader(data)); countErr != nil {
		zap.L().Warn("ocr: failed to read PDF page count", zap.String("path", pdfPath), zap.Error(countErr))
	} else {
		pages = n
	}

	if pages == 0 {
		return p.run(ctx, pdfPath)
	}

	var sb strings.Builder
	for page := 1; page <= pages; page++ {
		out, err := p.run(ctx, pdfPath, "-f", strconv.Itoa(page), "-l", strconv.Itoa(page))
		if err != nil {
			return "", eris.Wrapf(err, "ocr: page %d", page)
		}
		sb.WriteString(strings.TrimRight(out, "\f\n"))
		sb.WriteByte('\n')
	}
	zap.L().Debug("ocr: pdftotext complete", zap.String("path", pdfPath), zap.Int("pages", pages))
	return sb.String(), nil
}

func (p *PdfToText) run(ctx context.Context, pdfPath string, pageArgs ...string) (string, error) {
	args := append([]string{"-layout"}, pageArgs...)
	args = append(args, pdfPath, "-")
	cmd := exec.CommandContext(ctx, p.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	return stdout.String(), nil
}
