// Package ocr extracts plain text from patent PDFs.
package ocr

import (
	"bytes"
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// PdfToText extracts text from PDFs using the poppler pdftotext CLI.
type PdfToText struct {
	binPath string
	run     func(ctx context.Context, name string, args []string, stdout, stderr *bytes.Buffer) error
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath, run: runCommand}
}

// ExtractText runs pdftotext on the given PDF and returns its UTF-8 text with
// page breaks removed.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	args := []string{"-enc", "UTF-8", "-nopgbrk", pdfPath, "-"}
	if err := p.run(ctx, p.binPath, args, &stdout, &stderr); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", pdfPath, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
