package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kycerrors "loanserve/pkg/errors"
	"loanserve/pkg/logger"
)

func TestQPDFDecryptor_EmptyPasscodePassthrough(t *testing.T) {
	d := NewQPDFDecryptor("qpdf", 5*time.Second, logger.NewNop())

	out, err := d.Decrypt(context.Background(), "/tmp/input.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/input.pdf", out)
}

func TestQPDFDecryptor_MissingBinary(t *testing.T) {
	d := NewQPDFDecryptor("definitely-not-a-real-binary-9a1f", 5*time.Second, logger.NewNop())

	_, err := d.Decrypt(context.Background(), "/tmp/input.pdf", "secret")
	assert.ErrorIs(t, err, kycerrors.ErrToolUnavailable)
}
