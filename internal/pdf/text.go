package pdf

import (
	"fmt"
	"strings"

	pdfreader "github.com/ledongthuc/pdf"
)

// ExtractText returns the embedded text of every page, in page order.
func ExtractText(path string) (string, error) {
	f, doc, err := pdfreader.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var text strings.Builder
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		text.WriteString(pageText)
		if pageText != "" && !strings.HasSuffix(pageText, "\n") {
			text.WriteByte('\n')
		}
	}
	return text.String(), nil
}
