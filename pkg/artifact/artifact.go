// Package artifact writes named output documents to a directory. Each write
// lands atomically and is reported with the BLAKE3 digest of its content.
package artifact

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"annotationsr/pkg/errs"
)

// Media types of the documents the tools produce
const (
	MediaTypeDICOM = "application/dicom"
	MediaTypeVTI   = "application/vnd.vtk.imagedata+xml"
	MediaTypeJSON  = "application/json"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// tempFileClose is a function variable for closing temp files (for testing).
var tempFileClose = func(f io.Closer) error {
	return f.Close()
}

// Artifact is one named output document
type Artifact struct {
	Name      string
	MediaType string
	Data      []byte
}

// Record describes a written artifact
type Record struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	MediaType string `json:"mediaType"`
	Size      int    `json:"size"`
	BLAKE3    string `json:"blake3"`
}

// Digest returns the hex BLAKE3-256 of data
func Digest(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Digest returns the hex BLAKE3-256 of the artifact's content
func (a Artifact) Digest() string {
	return Digest(a.Data)
}

func (a Artifact) validate() error {
	switch {
	case a.Name == "":
		return errs.NewValidation("name", "must not be empty")
	case a.Name == "." || a.Name == "..":
		return errs.NewValidation("name", fmt.Sprintf("%q is not a file name", a.Name))
	case strings.ContainsAny(a.Name, `/\`):
		return errs.NewValidation("name", fmt.Sprintf("%q must not contain a path separator", a.Name))
	}
	return nil
}

// Write stores the artifact as dir/Name, creating dir if needed. The content
// is written to a temp file in dir and renamed into place, so readers never
// observe a partial file.
func Write(dir string, a Artifact) (Record, error) {
	if err := a.validate(); err != nil {
		return Record{}, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Record{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return Record{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(a.Data); err != nil {
		tempFileClose(tempFile)
		os.Remove(tempPath)
		return Record{}, fmt.Errorf("failed to write %s: %w", a.Name, err)
	}
	if err := tempFileClose(tempFile); err != nil {
		os.Remove(tempPath)
		return Record{}, fmt.Errorf("failed to close temp file: %w", err)
	}

	path := filepath.Join(dir, a.Name)
	if err := osRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return Record{}, fmt.Errorf("failed to rename %s: %w", a.Name, err)
	}

	return Record{
		Name:      a.Name,
		Path:      path,
		MediaType: a.MediaType,
		Size:      len(a.Data),
		BLAKE3:    a.Digest(),
	}, nil
}

// WriteAll writes every artifact in order and stops at the first failure,
// returning the records written so far
func WriteAll(dir string, artifacts ...Artifact) ([]Record, error) {
	records := make([]Record, 0, len(artifacts))
	for _, a := range artifacts {
		rec, err := Write(dir, a)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Verify reports whether the file at path still matches the record's digest
func Verify(rec Record) (bool, error) {
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", rec.Path, err)
	}
	return Digest(data) == rec.BLAKE3, nil
}
