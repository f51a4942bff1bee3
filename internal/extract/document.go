// Package extract pulls plain text out of uploaded attachments so the
// moderation pipeline can score document content. Extraction is sampled,
// not exhaustive: enough text to classify, cheap enough to run inline.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"log"
	"strings"
)

const (
	// maxChars bounds the text handed to the toxicity classifier.
	maxChars = 1000
	// maxPDFPages samples only the leading pages of paginated documents.
	maxPDFPages = 2
)

// SupportsFilename reports whether the file is a text-bearing document
// this package knows how to parse.
func SupportsFilename(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".pdf") ||
		strings.HasSuffix(lower, ".docx") ||
		strings.HasSuffix(lower, ".txt")
}

// FromUpload extracts up to maxChars of text from an uploaded document.
// Unsupported types and parse failures yield "" so the caller's scoring
// term degrades to zero instead of failing the request.
func FromUpload(filename string, r io.Reader) string {
	data, err := io.ReadAll(r)
	if err != nil {
		log.Printf("extract: failed to read upload %q: %v", filename, err)
		return ""
	}

	lower := strings.ToLower(filename)
	var text string
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		text = fromPDF(data)
	case strings.HasSuffix(lower, ".docx"):
		text = fromDOCX(data)
	case strings.HasSuffix(lower, ".txt"):
		text = string(data)
	default:
		return ""
	}

	text = strings.TrimSpace(text)
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return text
}

// fromDOCX reads the w:t runs out of word/document.xml. A docx is a zip
// archive; no external dependency is needed for this much of the format.
func fromDOCX(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		log.Printf("extract: not a valid docx archive: %v", err)
		return ""
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return ""
		}
		break
	}
	if docXML == nil {
		return ""
	}

	decoder := xml.NewDecoder(bytes.NewReader(docXML))
	var sb strings.Builder
	inTextRun := false
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			if el.Name.Local == "t" {
				inTextRun = false
			}
			if el.Name.Local == "p" {
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inTextRun {
				sb.Write(el)
			}
		}
		if sb.Len() > maxChars*2 {
			break
		}
	}
	return sb.String()
}
