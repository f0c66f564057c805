package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/trobanga/medreport/internal/lib"
)

// ArtifactStore saves downloaded documents into an output directory
type ArtifactStore struct {
	dir    string
	logger *lib.Logger
}

// NewArtifactStore creates a store rooted at dir
func NewArtifactStore(dir string, logger *lib.Logger) *ArtifactStore {
	return &ArtifactStore{dir: dir, logger: logger}
}

// Dir returns the output directory
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// WriteFunc streams content into w and returns the preferred file name ("" for none)
type WriteFunc func(ctx context.Context, w io.Writer) (string, error)

// Save writes content to a temporary file and renames it into place.
// The temporary file is removed on every path, including failures.
func (s *ArtifactStore) Save(ctx context.Context, fallbackName string, write WriteFunc) (string, error) {
	var saved string

	err := WithDirLock(s.dir, s.logger, func() error {
		tempPath := filepath.Join(s.dir, fmt.Sprintf(".artifact.tmp.%s", uuid.New().String()))
		tmp, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			return lib.ErrArtifactWrite(s.dir, err)
		}
		defer func() {
			_ = tmp.Close()
			if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("Failed to remove temporary file", "path", tempPath, "error", err)
			}
		}()

		name, err := write(ctx, tmp)
		if err != nil {
			return err
		}

		if err := tmp.Sync(); err != nil {
			return lib.ErrArtifactWrite(tempPath, err)
		}
		if err := tmp.Close(); err != nil {
			return lib.ErrArtifactWrite(tempPath, err)
		}

		finalName := SanitizeFileName(name)
		if finalName == "" {
			finalName = SanitizeFileName(fallbackName)
		}
		if finalName == "" {
			finalName = "report.pdf"
		}

		dest := filepath.Join(s.dir, finalName)
		if err := os.Rename(tempPath, dest); err != nil {
			return lib.ErrArtifactWrite(dest, err)
		}
		saved = dest
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("Artifact saved", "path", saved)
	return saved, nil
}
