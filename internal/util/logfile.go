package util

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

// TeeLog sends the standard logger to stdout and to the file at path,
// creating its directory when needed. The caller closes the returned file.
func TeeLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f, nil
}
