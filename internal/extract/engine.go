// ==============================================================================
// TEXT EXTRACTION ENGINE - internal/extract/engine.go
// ==============================================================================
// Ordered provider chain: page rasterization + OCR first, embedded text layer
// second. Providers are explicit capability adapters so the fallback decision
// is testable with fakes.
// ==============================================================================

package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"loanserve/pkg/errors"
	"loanserve/pkg/logger"

	"github.com/ledongthuc/pdf"
)

// Provider is one way of turning a document into raw text.
type Provider interface {
	Name() string
	Available() bool
	Extract(ctx context.Context, documentPath string) (string, error)
}

// Engine queries providers in order until one succeeds.
type Engine struct {
	providers []Provider
	logger    logger.Logger
}

func NewEngine(log logger.Logger, providers ...Provider) *Engine {
	return &Engine{providers: providers, logger: log}
}

// ExtractText runs the fallback chain. OCR is tried first because source
// documents are frequently scans with no usable text layer; the embedded
// text extractor is a cheaper but less reliable fallback.
func (e *Engine) ExtractText(ctx context.Context, documentPath string) (string, error) {
	var lastErr error
	attempted := false

	for _, p := range e.providers {
		if !p.Available() {
			e.logger.Debug("Extraction provider unavailable", map[string]interface{}{
				"provider": p.Name(),
			})
			continue
		}
		attempted = true

		text, err := p.Extract(ctx, documentPath)
		if err == nil {
			return text, nil
		}
		lastErr = err
		e.logger.Warn("Extraction provider failed", map[string]interface{}{
			"provider": p.Name(),
			"error":    err.Error(),
		})
	}

	if !attempted {
		return "", errors.ErrNoExtractionMethod
	}
	return "", fmt.Errorf("%w: %v", errors.ErrExtractionFailed, lastErr)
}

// ==============================================================================
// RASTER + OCR PROVIDER
// ==============================================================================

// ScratchFunc allocates a temporary working directory and returns a cleanup
// that removes it.
type ScratchFunc func() (string, func(), error)

// RasterOCRProvider renders each page to PNG with pdftoppm and feeds the
// images through the injected OCR engine. Per-image OCR failures become
// inline error markers instead of aborting the whole extraction.
type RasterOCRProvider struct {
	pdftoppmBin string
	ocr         OCREngine
	timeout     time.Duration
	scratch     ScratchFunc
}

// NewRasterOCRProvider creates a raster provider. scratch may be nil, in
// which case page images go to a system temp directory.
func NewRasterOCRProvider(pdftoppmBin string, ocr OCREngine, timeout time.Duration, scratch ScratchFunc) *RasterOCRProvider {
	return &RasterOCRProvider{pdftoppmBin: pdftoppmBin, ocr: ocr, timeout: timeout, scratch: scratch}
}

func (p *RasterOCRProvider) Name() string { return "raster-ocr" }

func (p *RasterOCRProvider) Available() bool {
	if _, err := exec.LookPath(p.pdftoppmBin); err != nil {
		return false
	}
	return p.ocr.Available()
}

func (p *RasterOCRProvider) Extract(ctx context.Context, documentPath string) (string, error) {
	workDir, cleanup, err := p.pageDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to create rasterization directory")
	}
	// Rendered pages are removed whether OCR succeeded or not.
	defer cleanup()

	rasterCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	prefix := filepath.Join(workDir, "page")
	var stderr bytes.Buffer
	cmd := exec.CommandContext(rasterCtx, p.pdftoppmBin, "-r", "300", "-png", documentPath, prefix)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(err, "pdftoppm failed: "+stderr.String())
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(pages) == 0 {
		return "", fmt.Errorf("pdftoppm produced no pages for %s", documentPath)
	}
	sort.Strings(pages)

	var out strings.Builder
	for _, page := range pages {
		text, err := p.ocr.Recognize(ctx, page)
		if err != nil {
			out.WriteString(fmt.Sprintf("[ocr error: %v]", err))
		} else {
			out.WriteString(text)
		}
		out.WriteString("\n")
	}

	return out.String(), nil
}

func (p *RasterOCRProvider) pageDir() (string, func(), error) {
	if p.scratch != nil {
		return p.scratch()
	}
	dir, err := os.MkdirTemp("", "kyc_pages_")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// ==============================================================================
// PDF TEXT LAYER PROVIDER
// ==============================================================================

// PDFTextProvider reads the embedded text layer directly.
type PDFTextProvider struct{}

func NewPDFTextProvider() *PDFTextProvider { return &PDFTextProvider{} }

func (p *PDFTextProvider) Name() string    { return "pdf-text" }
func (p *PDFTextProvider) Available() bool { return true }

func (p *PDFTextProvider) Extract(ctx context.Context, documentPath string) (string, error) {
	f, reader, err := pdf.Open(documentPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open pdf")
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "failed to read pdf text layer")
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", errors.Wrap(err, "failed to read pdf text stream")
	}
	return buf.String(), nil
}
