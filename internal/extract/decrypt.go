// ==============================================================================
// PDF DECRYPTION ADAPTER - internal/extract/decrypt.go
// ==============================================================================

package extract

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"loanserve/pkg/errors"
	"loanserve/pkg/logger"
)

// Decryptor produces a decrypted working copy of a protected PDF.
type Decryptor interface {
	Decrypt(ctx context.Context, inputPath, passcode string) (string, error)
}

// QPDFDecryptor shells out to qpdf. The tool is probed before each run so a
// missing binary surfaces as ErrToolUnavailable rather than a generic exec
// failure.
type QPDFDecryptor struct {
	bin     string
	timeout time.Duration
	logger  logger.Logger
}

func NewQPDFDecryptor(bin string, timeout time.Duration, log logger.Logger) *QPDFDecryptor {
	return &QPDFDecryptor{bin: bin, timeout: timeout, logger: log}
}

// Decrypt writes a decrypted copy next to the input and returns its path.
// An empty passcode skips decryption entirely and returns the input
// unchanged. Any partial output is removed before an error propagates.
func (d *QPDFDecryptor) Decrypt(ctx context.Context, inputPath, passcode string) (string, error) {
	if passcode == "" {
		return inputPath, nil
	}

	if _, err := exec.LookPath(d.bin); err != nil {
		return "", errors.ErrToolUnavailable
	}

	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".decrypted.pdf"

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.bin, "--password="+passcode, "--decrypt", inputPath, outputPath)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outputPath)

		msg := strings.ToLower(stderr.String())
		if strings.Contains(msg, "invalid password") || strings.Contains(msg, "password") {
			return "", errors.ErrWrongPasscode
		}
		d.logger.Warn("qpdf decryption failed", map[string]interface{}{
			"input": inputPath,
			"error": err.Error(),
		})
		return "", errors.ErrDecryptFailed
	}

	return outputPath, nil
}
