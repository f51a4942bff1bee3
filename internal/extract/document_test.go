package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDOCX(t *testing.T, paragraphs []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)

	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		doc.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	_, err = w.Write([]byte(doc.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFromUpload_TXT(t *testing.T) {
	text := FromUpload("keluhan.txt", strings.NewReader("AC ruang kelas rusak sejak minggu lalu"))
	assert.Equal(t, "AC ruang kelas rusak sejak minggu lalu", text)
}

func TestFromUpload_TXT_Truncated(t *testing.T) {
	text := FromUpload("panjang.txt", strings.NewReader(strings.Repeat("x", 5000)))
	assert.Len(t, text, maxChars)
}

func TestFromUpload_DOCX(t *testing.T) {
	data := makeDOCX(t, []string{"Paragraf pertama.", "Paragraf kedua."})
	text := FromUpload("laporan.docx", bytes.NewReader(data))
	assert.Contains(t, text, "Paragraf pertama.")
	assert.Contains(t, text, "Paragraf kedua.")
}

func TestFromUpload_DOCX_Corrupt(t *testing.T) {
	text := FromUpload("rusak.docx", bytes.NewReader([]byte("not a zip archive")))
	assert.Equal(t, "", text)
}

func TestFromUpload_PDF_Corrupt(t *testing.T) {
	text := FromUpload("rusak.pdf", bytes.NewReader([]byte("%PDF-1.4 truncated garbage")))
	assert.Equal(t, "", text)
}

// makeBrokenPDF builds a document with a well-formed header and trailer
// whose cross-reference table maps the page tree to the wrong object.
// Walking its pages panics inside the pdf library.
func makeBrokenPDF() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	objOffset := buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 3\n")
	buf.WriteString("0000000000 65535 f \n")
	fmt.Fprintf(&buf, "%010d 00000 n \n", objOffset)
	fmt.Fprintf(&buf, "%010d 00000 n \n", objOffset)
	buf.WriteString("trailer\n<< /Size 3 /Root 1 0 R >>\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

func TestFromUpload_PDF_BrokenPageTree(t *testing.T) {
	text := FromUpload("jebakan.pdf", bytes.NewReader(makeBrokenPDF()))
	assert.Equal(t, "", text)
}

func TestFromUpload_UnsupportedType(t *testing.T) {
	text := FromUpload("archive.tar.gz", strings.NewReader("binary stuff"))
	assert.Equal(t, "", text)
}

func TestSupportsFilename(t *testing.T) {
	assert.True(t, SupportsFilename("Laporan.PDF"))
	assert.True(t, SupportsFilename("surat.docx"))
	assert.True(t, SupportsFilename("catatan.txt"))
	assert.False(t, SupportsFilename("foto.jpg"))
	assert.False(t, SupportsFilename("data.csv"))
}
