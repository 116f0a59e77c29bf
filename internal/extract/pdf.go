package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the text layer of PDF documents
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Name returns the extractor name
func (e *PDFExtractor) Name() string {
	return "pdf"
}

// CanHandle checks for application/pdf
func (e *PDFExtractor) CanHandle(contentType string) bool {
	return contentType == "application/pdf"
}

// Extract concatenates the text of every page in order.
// The PDF reader panics on some corrupt inputs (e.g. bad zlib streams); that becomes an error.
func (e *PDFExtractor) Extract(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("corrupt PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	var failed int
	var lastErr error
	total := r.NumPage()

	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			failed++
			lastErr = pageErr
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	if total > 0 && failed == total {
		return "", fmt.Errorf("read PDF pages: %w", lastErr)
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", nil
	}
	return sb.String(), nil
}
