// Package document loads plain text out of source files handed to the
// command line tools: PDFs are extracted page by page, anything else is read
// as UTF-8 text.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyDocument = errors.New("document: no extractable text")

// ReadText returns the text content of path. maxPages bounds PDF
// extraction; zero reads every page.
func ReadText(path string, maxPages int) (string, error) {
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = extractPDF(path, maxPages)
	} else {
		var raw []byte
		raw, err = os.ReadFile(path)
		text = string(raw)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, path)
	}
	return text, nil
}

func extractPDF(path string, maxPages int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var sb strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable pages (broken fonts, images only) are skipped.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
