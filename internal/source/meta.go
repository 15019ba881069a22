package source

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"symtrack/internal/identity"
)

// DefaultMetaExtension is appended to a source file path to find its sidecar.
const DefaultMetaExtension = ".meta"

// metaFileFormatVersion is written into sidecars created by symtrack.
const metaFileFormatVersion = 2

// MetaFile is the sidecar that gives a source file its stable identity.
// Unknown keys are preserved by never rewriting existing sidecars.
type MetaFile struct {
	FileFormatVersion int    `yaml:"fileFormatVersion"`
	GUID              string `yaml:"guid"`
}

// MetaPath returns the sidecar path for a source file.
func MetaPath(sourcePath, metaExt string) string {
	if metaExt == "" {
		metaExt = DefaultMetaExtension
	}
	return sourcePath + metaExt
}

// ReadMeta parses a sidecar file. It returns os.ErrNotExist (wrapped) when
// the sidecar is missing.
func ReadMeta(path string) (*MetaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var meta MetaFile
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	meta.GUID = strings.TrimSpace(meta.GUID)
	if meta.GUID == "" {
		return nil, fmt.Errorf("%s has no guid", path)
	}
	return &meta, nil
}

// NewGUID returns a fresh identity in the 32 hex digit sidecar form.
func NewGUID() identity.StableIdentity {
	return identity.StableIdentity(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// WriteMeta creates a sidecar with a fresh GUID. It fails if the sidecar
// already exists so an identity is never replaced.
func WriteMeta(path string) (*MetaFile, error) {
	meta := &MetaFile{
		FileFormatVersion: metaFileFormatVersion,
		GUID:              string(NewGUID()),
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return meta, nil
}
