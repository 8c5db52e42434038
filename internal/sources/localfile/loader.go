// Package localfile reads and writes a commands document on disk, for
// offline checks and for editing a copy before publishing.
package localfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/linkdesk/internal/domain"
	"github.com/MrSnakeDoc/linkdesk/internal/utils"
)

// Codec converts between document text and the document model.
type Codec interface {
	Parse(text string) (*domain.Document, error)
	Serialize(doc *domain.Document) (string, error)
}

// Loader handles one commands file.
type Loader struct {
	filePath string
	codec    Codec
}

// NewLoader creates a loader for filePath.
func NewLoader(filePath string, codec Codec) *Loader {
	return &Loader{
		filePath: filePath,
		codec:    codec,
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the file.
func (l *Loader) Load() (*domain.Document, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read commands file: %w", err)
	}

	doc, err := l.codec.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", l.filePath, err)
	}
	return doc, nil
}

// Save writes doc in its published form. The file is replaced atomically so
// a failed write never leaves half a document behind.
func (l *Loader) Save(doc *domain.Document) error {
	text, err := l.codec.Serialize(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.filePath)
	tmp, err := os.CreateTemp(dir, ".linkdesk-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(text); err != nil {
		utils.Close(tmp)
		return fmt.Errorf("failed to write %s: %w", l.filePath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", l.filePath, err)
	}
	if err := os.Rename(tmp.Name(), l.filePath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", l.filePath, err)
	}
	return nil
}
