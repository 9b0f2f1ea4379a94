package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
<w:p><w:r><w:t>Senior Platform Engineer</w:t></w:r></w:p>
</w:body>
</w:document>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// buildPDF writes a two-page PDF whose first page shows text and whose
// second page has no content stream.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 6 0 R] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractTextFromBytes_PDFPages(t *testing.T) {
	data := buildPDF("Jane Doe Staff Engineer")

	text, err := ExtractTextFromBytes(context.Background(), data, "application/pdf", "cv.pdf")
	if err != nil {
		t.Fatalf("extract pdf: %v", err)
	}
	if !strings.Contains(text, "Jane Doe Staff Engineer") {
		t.Fatalf("expected page text, got %q", text)
	}
}

func TestExtractTextFromBytes_PDFSniffedFromOctetStream(t *testing.T) {
	data := buildPDF("Sniffed")

	text, err := ExtractTextFromBytes(context.Background(), data, "application/octet-stream", "upload")
	if err != nil {
		t.Fatalf("extract pdf: %v", err)
	}
	if !strings.Contains(text, "Sniffed") {
		t.Fatalf("expected sniffed pdf text, got %q", text)
	}
}

func TestExtractTextFromBytes_PDFWithoutTextIsNoText(t *testing.T) {
	data := buildPDF("")

	_, err := ExtractTextFromBytes(context.Background(), data, "application/pdf", "blank.pdf")
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestExtractTextFromBytes_CorruptPDF(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("%PDF-1.4\nnot really a pdf"), "application/pdf", "bad.pdf")
	if err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
	if errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("corrupt pdf should not be reported as unsupported: %v", err)
	}
}

func TestExtractTextFromBytes_DOCX(t *testing.T) {
	data := buildZip(t, map[string]string{
		"word/document.xml":            docxBody,
		"word/_rels/document.xml.rels": docxRels,
	})

	text, err := ExtractTextFromBytes(context.Background(), data, mimeDOCX, "cv.docx")
	if err != nil {
		t.Fatalf("extract docx: %v", err)
	}
	if text != "Jane Doe\nSenior Platform Engineer" {
		t.Fatalf("unexpected docx text %q", text)
	}
}

func TestExtractTextFromBytes_DOCXWithoutRelsFallsBack(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": docxBody})

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "cv.docx")
	if err != nil {
		t.Fatalf("extract docx: %v", err)
	}
	if !strings.HasPrefix(text, "Jane Doe") {
		t.Fatalf("unexpected docx text %q", text)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	data := buildZip(t, map[string]string{"notes.txt": "hello"})

	_, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("expected mime type in error, got %v", err)
	}
}

func TestExtractTextFromBytes_PlainTextRejected(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("hello"), "text/plain", "cv.txt")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestExtractTextFromBytes_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ExtractTextFromBytes(ctx, buildPDF("x"), mimePDF, "cv.pdf"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStripDocxXMLIgnoresWhitespaceBetweenElements(t *testing.T) {
	raw := `<w:document>
  <w:body>
    <w:p>
      <w:r><w:t>Jane Doe</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t xml:space="preserve">Senior </w:t></w:r><w:r><w:t>Engineer</w:t></w:r>
    </w:p>
  </w:body>
</w:document>`
	if got := stripDocxXML(raw); got != "Jane Doe\nSenior Engineer" {
		t.Fatalf("unexpected stripped text %q", got)
	}
}

func TestStripDocxXML(t *testing.T) {
	got := stripDocxXML(`<w:p><w:r><w:t>A</w:t><w:tab/><w:t>B</w:t></w:r></w:p><w:p><w:r><w:t>C</w:t></w:r></w:p>`)
	if got != "A\tB\nC" {
		t.Fatalf("unexpected stripped text %q", got)
	}
}
