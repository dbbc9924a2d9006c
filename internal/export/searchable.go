package export

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/scansort/scansort/internal/extract"
)

// Text layers longer than this are truncated. The layer exists for
// search and copy-paste, not for faithful reproduction.
const maxLayerChars = 8000

const layerDesc = "font:Helvetica, points:6, pos:bl, rot:0, opacity:0.02"

// writeSearchable copies the document PDF and stamps each page with a
// near-invisible overlay of its extracted text. Pages with no text are
// left untouched. Page numbers in the watermark map are positions
// within the document, not batch page numbers.
func writeSearchable(inPath, outPath string, texts []extract.PageText, conf *model.Configuration) error {
	overlays := make(map[int]*model.Watermark, len(texts))
	for i, pt := range texts {
		text := normalizeLayerText(pt.Text)
		if text == "" {
			continue
		}
		wm, err := api.TextWatermark(text, layerDesc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("failed to build text layer for page %d: %w", pt.Number, err)
		}
		overlays[i+1] = wm
	}

	if len(overlays) == 0 {
		return copyFile(inPath, outPath)
	}
	if err := api.AddWatermarksMapFile(inPath, outPath, overlays, conf); err != nil {
		return fmt.Errorf("failed to add text layers: %w", err)
	}
	return nil
}

func normalizeLayerText(s string) string {
	s = extract.Truncate(strings.TrimSpace(s), maxLayerChars)
	// pdfcpu renders \n as line breaks; normalize CRLF input.
	return strings.ReplaceAll(s, "\r\n", "\n")
}
