// ==============================================================================
// ARTIFACT STORE - internal/artifact/store.go
// ==============================================================================
// Local filesystem storage for uploaded source documents and generated XML,
// confined to a restricted root directory with collision-free naming
// ==============================================================================

package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"loanserve/pkg/errors"
	"loanserve/pkg/logger"

	"github.com/google/uuid"
)

// Store persists artifacts under a single restricted root. Every saved file
// gets a uuid-prefixed name so concurrent verification calls can never
// collide, regardless of what the client named the upload.
type Store struct {
	root   string
	logger logger.Logger
}

// NewStore creates the root directory if needed and returns a Store.
func NewStore(root string, log logger.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve storage root")
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.Wrap(err, "failed to create storage root")
	}
	return &Store{root: abs, logger: log}, nil
}

// Root returns the canonical storage root.
func (s *Store) Root() string {
	return s.root
}

// Save writes data under users/<userID>/ with a unique name derived from a
// random identifier, never from client input alone. Returns the stored path
// and the SHA-256 checksum of the content.
func (s *Store) Save(userID uuid.UUID, fileName string, data []byte) (string, string, error) {
	start := time.Now()

	dir := filepath.Join(s.root, "users", userID.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "", errors.Wrap(err, "failed to create user directory")
	}

	ext := strings.ToLower(filepath.Ext(sanitizeFileName(fileName)))
	unique := fmt.Sprintf("%s_%s%s", uuid.New().String()[:8], time.Now().Format("150405"), ext)
	path := filepath.Join(dir, unique)

	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", "", errors.Wrap(err, "failed to write artifact")
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	s.logger.Info("Artifact saved", map[string]interface{}{
		"event":       "artifact_saved",
		"user_id":     userID.String(),
		"path":        path,
		"size":        len(data),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return path, checksum, nil
}

// Read returns the bytes of a stored artifact after confining the path to
// the storage root (directory-traversal defense).
func (s *Store) Read(storagePath string) ([]byte, error) {
	canonical, err := s.confine(storagePath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(canonical); os.IsNotExist(err) {
		return nil, errors.ErrArtifactNotFound
	}
	data, err := os.ReadFile(canonical)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read artifact")
	}
	return data, nil
}

// Delete removes a stored artifact. A missing file is not an error.
func (s *Store) Delete(storagePath string) error {
	canonical, err := s.confine(storagePath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(canonical); os.IsNotExist(err) {
		return nil
	}
	if err := os.Remove(canonical); err != nil {
		return errors.Wrap(err, "failed to delete artifact")
	}
	return nil
}

// Scratch creates a per-call working directory under the storage root for
// rasterized page images, keeping intermediate identity data inside the
// confined tree. The returned cleanup removes it.
func (s *Store) Scratch() (string, func(), error) {
	dir := filepath.Join(s.root, "tmp", uuid.New().String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", nil, errors.Wrap(err, "failed to create scratch directory")
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("Scratch cleanup failed", map[string]interface{}{
				"path":  dir,
				"error": err.Error(),
			})
		}
	}
	return dir, cleanup, nil
}

// confine canonicalizes a path and verifies it stays inside the root.
// Symlinks are resolved when the target exists so a planted link cannot
// escape the root.
func (s *Store) confine(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.ErrArtifactOutsideRoot
	}
	abs = filepath.Clean(abs)
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", errors.ErrArtifactOutsideRoot
	}
	return abs, nil
}

func sanitizeFileName(fileName string) string {
	// Remove path components
	fileName = filepath.Base(fileName)

	replacements := []string{
		"..", "", "/", "_", "\\", "_", " ", "_", "\"", "", "'", "", "`", "",
		"|", "_", "&", "_", ";", "_", "$", "_", "(", "_", ")", "_",
		"<", "_", ">", "_", "*", "_",
	}
	return strings.NewReplacer(replacements...).Replace(fileName)
}
