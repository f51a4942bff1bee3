package extract

import (
	"bytes"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// fromPDF extracts plain text from the first maxPDFPages pages. The pdf
// library panics on some malformed page trees, so the whole walk runs
// behind a recover and a broken attachment degrades to empty text.
func fromPDF(data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("extract: pdf parsing panicked: %v", r)
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		log.Printf("extract: not a valid pdf: %v", err)
		return ""
	}

	pages := reader.NumPage()
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String()
}
