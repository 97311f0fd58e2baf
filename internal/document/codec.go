package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"
)

// Format identifies a supported document format.
type Format string

const (
	// FormatPDF is a PDF document.
	FormatPDF Format = "pdf"
	// FormatText is a plain text document.
	FormatText Format = "txt"
	// FormatUnknown is anything the codec cannot handle.
	FormatUnknown Format = ""
)

// DetectFormat resolves the document format from MIME type and file name.
func DetectFormat(mime, name string) Format {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "application/pdf":
		return FormatPDF
	case "text/plain":
		return FormatText
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".txt":
		return FormatText
	}
	return FormatUnknown
}

// ExtractText reads the full text content of a document.
func ExtractText(path string, format Format) (string, error) {
	switch format {
	case FormatPDF:
		return extractPDF(path)
	case FormatText:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported document format for %s", filepath.Base(path))
	}
}

// WriteTranslated stores translated text in the same format as the input.
func WriteTranslated(text, path string, format Format) error {
	switch format {
	case FormatPDF:
		return writePDF(text, path)
	case FormatText:
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported document format for %s", filepath.Base(path))
	}
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func writePDF(text, path string) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)

	// Core fonts are cp1252 only; characters outside it degrade to
	// their closest representable form.
	tr := doc.UnicodeTranslatorFromDescriptor("")
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			doc.Ln(6)
			continue
		}
		doc.MultiCell(190, 6, tr(line), "", "L", false)
	}

	if err := doc.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf %s: %w", filepath.Base(path), err)
	}
	return nil
}
