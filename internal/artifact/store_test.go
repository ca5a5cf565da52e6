package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kycerrors "loanserve/pkg/errors"
	"loanserve/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return store
}

func TestStore_SaveAndRead(t *testing.T) {
	store := newTestStore(t)
	userID := uuid.New()
	content := []byte("%PDF-1.4 test document")

	path, checksum, err := store.Save(userID, "pan.pdf", content)
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), checksum)
	assert.True(t, strings.HasPrefix(path, filepath.Join(store.Root(), "users", userID.String())))
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	data, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestStore_SaveNamesNeverCollide(t *testing.T) {
	store := newTestStore(t)
	userID := uuid.New()

	p1, _, err := store.Save(userID, "doc.pdf", []byte("one"))
	require.NoError(t, err)
	p2, _, err := store.Save(userID, "doc.pdf", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
}

func TestStore_ReadRejectsPathOutsideRoot(t *testing.T) {
	store := newTestStore(t)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o640))

	_, err := store.Read(outside)
	assert.ErrorIs(t, err, kycerrors.ErrArtifactOutsideRoot)

	_, err = store.Read(filepath.Join(store.Root(), "..", "escape.pdf"))
	assert.ErrorIs(t, err, kycerrors.ErrArtifactOutsideRoot)
}

func TestStore_ReadMissingArtifact(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read(filepath.Join(store.Root(), "users", "nobody", "gone.pdf"))
	assert.ErrorIs(t, err, kycerrors.ErrArtifactNotFound)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	path, _, err := store.Save(uuid.New(), "doc.pdf", []byte("bytes"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(path))
}

func TestStore_DeleteRejectsPathOutsideRoot(t *testing.T) {
	store := newTestStore(t)

	outside := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o640))

	err := store.Delete(outside)
	assert.ErrorIs(t, err, kycerrors.ErrArtifactOutsideRoot)
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)
}

func TestStore_ScratchCleanup(t *testing.T) {
	store := newTestStore(t)

	dir, cleanup, err := store.Scratch()
	require.NoError(t, err)
	require.DirExists(t, dir)
	assert.True(t, strings.HasPrefix(dir, store.Root()))

	cleanup()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "passwd", sanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "my_report.pdf", sanitizeFileName("my report.pdf"))
	assert.Equal(t, "run_rm_.pdf", sanitizeFileName("run;rm*.pdf"))
}
