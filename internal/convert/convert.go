// Package convert turns rendered documents into PDFs. The conversion is
// delegated to a headless LibreOffice process; the workflow only depends
// on the Converter interface and treats any failure as fatal for the
// customer being processed.
package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/medienwerk/credsheet/internal/models"
)

// Converter produces PDF bytes from rendered document bytes.
type Converter interface {
	ConvertToPDF(ctx context.Context, document []byte) ([]byte, error)
}

// SofficeConverter shells out to the LibreOffice binary.
type SofficeConverter struct {
	// Binary is the soffice executable, looked up on PATH when relative.
	Binary string
}

// NewSofficeConverter returns a converter using the given binary, or
// "soffice" when empty.
func NewSofficeConverter(binary string) *SofficeConverter {
	if binary == "" {
		binary = "soffice"
	}
	return &SofficeConverter{Binary: binary}
}

// ConvertToPDF writes the document to a scratch directory, converts it
// with soffice and returns the PDF bytes. There is never a partial
// result: any failure surfaces as ConversionError with no output.
func (c *SofficeConverter) ConvertToPDF(ctx context.Context, document []byte) ([]byte, error) {
	if len(document) == 0 {
		return nil, &models.ConversionError{Message: "empty document"}
	}

	dir, err := os.MkdirTemp("", "credsheet-convert-")
	if err != nil {
		return nil, &models.ConversionError{Message: fmt.Sprintf("scratch dir: %v", err)}
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "document.docx")
	if err := os.WriteFile(input, document, 0o600); err != nil {
		return nil, &models.ConversionError{Message: fmt.Sprintf("write document: %v", err)}
	}

	cmd := exec.CommandContext(ctx, c.Binary,
		"--headless", "--convert-to", "pdf", "--outdir", dir, input)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, &models.ConversionError{
			Message: fmt.Sprintf("%s: %v: %s", c.Binary, err, strings.TrimSpace(string(out))),
		}
	}

	pdf, err := os.ReadFile(filepath.Join(dir, "document.pdf"))
	if err != nil {
		return nil, &models.ConversionError{Message: fmt.Sprintf("converter produced no output: %v", err)}
	}
	if len(pdf) == 0 {
		return nil, &models.ConversionError{Message: "converter produced an empty file"}
	}
	return pdf, nil
}
