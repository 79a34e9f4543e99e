package generator

import (
	"fmt"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"os"
	"path/filepath"
	"strings"
)

// Files stores exported QR code files in one output directory.
type Files struct {
	OutputDir string
}

// NewFiles creates the output directory, relative paths are resolved against
// the working directory.
func NewFiles(outputDir string) (*Files, error) {
	if !filepath.IsAbs(outputDir) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		outputDir = filepath.Join(wd, outputDir)
	}
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return nil, err
	}
	return &Files{OutputDir: outputDir}, nil
}

// Save writes file under its own name, replacing an older export atomically.
func (f *Files) Save(file *qr.File) (string, error) {
	path, err := f.Path(file.Name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(f.OutputDir, ".export-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(file.Data); err != nil {
		tmp.Close()
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// Path returns where a file named name is stored.
func (f *Files) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(f.OutputDir, name), nil
}

// Delete removes every exported format of the QR code id.
func (f *Files) Delete(id string) error {
	for _, format := range qr.Formats {
		path, err := f.Path(qr.FileName(id, format))
		if err != nil {
			return err
		}
		if err = os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
