// Package output persists rendered schemas to disk.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcncl/castor/internal/errors"
)

// Direction tells whether a schema was taken from a request or a response.
type Direction string

const (
	Request  Direction = "req"
	Response Direction = "resp"
)

// Writer writes schemas into a single directory
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// FileName returns the name a schema for the given endpoint is stored under:
// <host>_<port><path>.<direction>.json with every "/" of path replaced by "_".
func FileName(host string, port int, path string, direction Direction) string {
	return fmt.Sprintf("%s_%d%s.%s.json", host, port, strings.ReplaceAll(path, "/", "_"), direction)
}

// Write stores schema text for an endpoint and returns the file path.
// A later schema for the same endpoint replaces the earlier one.
func (w *Writer) Write(host string, port int, path string, direction Direction, schema string) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", errors.NewOutputError(fmt.Sprintf("failed to create output directory '%s'", w.dir), err)
	}

	filePath := filepath.Join(w.dir, FileName(host, port, path, direction))
	if err := os.WriteFile(filePath, []byte(schema+"\n"), 0644); err != nil {
		return "", errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", filePath), err)
	}
	return filePath, nil
}
