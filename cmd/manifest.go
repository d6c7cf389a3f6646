package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/route-cli/internal/config"
	"github.com/sells-group/route-cli/internal/ocr"
)

// readManifest extracts the text lines of the manifest at path.
func readManifest(ctx context.Context, c config.OCRConfig, path string) ([]string, error) {
	ext, err := ocr.NewExtractor(c)
	if err != nil {
		return nil, err
	}
	lines, err := ext.ExtractLines(ctx, path)
	if err != nil {
		return nil, eris.Wrapf(err, "read manifest %s", path)
	}
	zap.L().Debug("manifest read", zap.String("path", path), zap.Int("lines", len(lines)))
	return lines, nil
}
