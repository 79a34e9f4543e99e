package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

var ErrUnknownFormat = errors.New("qr: unknown output format")

const jpegQuality = 95

// Format is an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
)

// Formats lists every supported output format.
var Formats = []Format{FormatPNG, FormatJPEG, FormatSVG, FormatPDF}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case FormatPNG, FormatJPEG, FormatSVG, FormatPDF:
		return f, nil
	case "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) MIME() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// FileName returns the download name of a symbol: qr-<id>.<ext>.
func FileName(id string, f Format) string {
	return fmt.Sprintf("qr-%s.%s", id, f.Ext())
}

// Encode serializes the scene in format f.
func (s *Scene) Encode(w io.Writer, f Format) error {
	switch f {
	case FormatPNG:
		return imaging.Encode(w, s.Raster(), imaging.PNG)
	case FormatJPEG:
		return imaging.Encode(w, s.Raster(), imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	case FormatSVG:
		return s.WriteSVG(w)
	case FormatPDF:
		return s.WritePDF(w)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// Bytes serializes the rendered scene in format f.
func (r *Result) Bytes(f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Scene.Encode(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// File is a serialized symbol ready for download.
type File struct {
	Name   string
	Format Format
	Data   []byte
}

// File serializes the result under the download name for id.
func (r *Result) File(id string, f Format) (*File, error) {
	data, err := r.Bytes(f)
	if err != nil {
		return nil, err
	}
	return &File{Name: FileName(id, f), Format: f, Data: data}, nil
}

// DataURL returns the file as a data: URL for inline previews.
func (f *File) DataURL() string {
	return "data:" + f.Format.MIME() + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}
