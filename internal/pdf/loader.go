// Package pdf extracts plain text from PDF documents.
package pdf

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText returns the concatenated text of all pages, in page order.
// Pages with no extractable text (scanned images, vector-only pages)
// contribute nothing instead of failing the whole document.
func ExtractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unextractable page, treat as empty.
			continue
		}
		sb.WriteString(text)
	}

	return sb.String(), nil
}
