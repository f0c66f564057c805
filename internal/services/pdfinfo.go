package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/trobanga/medreport/internal/lib"
	"rsc.io/pdf"
)

// PDFInfo summarizes a saved report document
type PDFInfo struct {
	Path    string
	Pages   int
	Size    int64
	Excerpt []string // Text lines from the first page
}

// InspectPDF opens a saved document and extracts a short text excerpt
func InspectPDF(path string, maxLines int) (PDFInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PDFInfo{}, lib.ErrFileNotFound(path)
		}
		return PDFInfo{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	doc, err := pdf.Open(path)
	if err != nil {
		return PDFInfo{}, lib.WrapError(lib.CategoryValidation, fmt.Sprintf("Not a readable PDF: %s", path), err)
	}

	info := PDFInfo{Path: path, Pages: doc.NumPage(), Size: st.Size()}
	if info.Pages > 0 {
		info.Excerpt = firstPageLines(doc.Page(1), maxLines)
	}
	return info, nil
}

// wordGap is the horizontal gap, relative to font size, read as a dropped space
const wordGap = 0.15

// firstPageLines groups positioned text runs into lines by baseline.
// Space glyphs are not reported as runs, so a gap between runs becomes a space.
func firstPageLines(page pdf.Page, maxLines int) []string {
	if page.V.IsNull() {
		return nil
	}
	var lines []string
	var current []string
	var prev pdf.Text
	started := false
	flush := func() {
		if s := strings.TrimSpace(strings.Join(current, "")); s != "" {
			lines = append(lines, s)
		}
		current = current[:0]
	}
	for _, t := range page.Content().Text {
		if started && t.Y != prev.Y {
			flush()
			if maxLines > 0 && len(lines) >= maxLines {
				return lines
			}
		} else if started && t.X-(prev.X+prev.W) > wordGap*t.FontSize {
			current = append(current, " ")
		}
		current = append(current, t.S)
		prev, started = t, true
	}
	if maxLines <= 0 || len(lines) < maxLines {
		flush()
	}
	return lines
}
