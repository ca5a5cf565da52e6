// ==============================================================================
// OCR ENGINE - internal/extract/ocr.go
// ==============================================================================

package extract

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"loanserve/pkg/errors"
)

// OCREngine recognizes text in a single page image. The engine is constructed
// once and injected, so tests can substitute a fake without touching the
// provider chain.
type OCREngine interface {
	Available() bool
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// TesseractEngine runs the tesseract CLI with stdout output.
type TesseractEngine struct {
	bin     string
	timeout time.Duration
}

func NewTesseractEngine(bin string, timeout time.Duration) *TesseractEngine {
	return &TesseractEngine{bin: bin, timeout: timeout}
}

func (e *TesseractEngine) Available() bool {
	_, err := exec.LookPath(e.bin)
	return err == nil
}

func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.bin, imagePath, "stdout")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(err, "tesseract failed: "+stderr.String())
	}
	return stdout.String(), nil
}
