package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kycerrors "loanserve/pkg/errors"
	"loanserve/pkg/logger"
)

type fakeProvider struct {
	name      string
	available bool
	text      string
	err       error
	calls     int
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) Extract(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestEngine_FirstSuccessWins(t *testing.T) {
	first := &fakeProvider{name: "ocr", available: true, text: "from ocr"}
	second := &fakeProvider{name: "text-layer", available: true, text: "from text layer"}
	engine := NewEngine(logger.NewNop(), first, second)

	text, err := engine.ExtractText(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "from ocr", text)
	assert.Equal(t, 0, second.calls)
}

func TestEngine_UnavailableProviderSkipped(t *testing.T) {
	down := &fakeProvider{name: "ocr", available: false}
	up := &fakeProvider{name: "text-layer", available: true, text: "fallback text"}
	engine := NewEngine(logger.NewNop(), down, up)

	text, err := engine.ExtractText(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "fallback text", text)
	assert.Equal(t, 0, down.calls)
}

func TestEngine_FailureFallsThrough(t *testing.T) {
	failing := &fakeProvider{name: "ocr", available: true, err: errors.New("render exploded")}
	up := &fakeProvider{name: "text-layer", available: true, text: "recovered"}
	engine := NewEngine(logger.NewNop(), failing, up)

	text, err := engine.ExtractText(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 1, failing.calls)
}

func TestEngine_NoProviderAvailable(t *testing.T) {
	engine := NewEngine(logger.NewNop(),
		&fakeProvider{name: "ocr", available: false},
		&fakeProvider{name: "text-layer", available: false},
	)

	_, err := engine.ExtractText(context.Background(), "doc.pdf")
	assert.ErrorIs(t, err, kycerrors.ErrNoExtractionMethod)
}

func TestEngine_AllProvidersFail(t *testing.T) {
	engine := NewEngine(logger.NewNop(),
		&fakeProvider{name: "ocr", available: true, err: errors.New("no pages")},
		&fakeProvider{name: "text-layer", available: true, err: errors.New("no text layer")},
	)

	_, err := engine.ExtractText(context.Background(), "doc.pdf")
	require.ErrorIs(t, err, kycerrors.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "no text layer")
}

func TestRasterOCRProvider_ScratchRemovedOnFailure(t *testing.T) {
	var dir string
	cleaned := false
	scratch := func() (string, func(), error) {
		dir = filepath.Join(t.TempDir(), "pages")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", nil, err
		}
		return dir, func() {
			cleaned = true
			os.RemoveAll(dir)
		}, nil
	}

	p := NewRasterOCRProvider("definitely-not-a-real-binary-9a1f", nil, time.Second, scratch)

	_, err := p.Extract(context.Background(), "doc.pdf")
	require.Error(t, err)
	assert.True(t, cleaned)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEngine_EmptyTextIsSuccess(t *testing.T) {
	engine := NewEngine(logger.NewNop(), &fakeProvider{name: "ocr", available: true, text: ""})

	text, err := engine.ExtractText(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Empty(t, text)
}
