package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
)

var ErrInvalidDataURL = errors.New("qr: invalid data url")

// DecodeLogo decodes a PNG, JPEG, GIF, BMP or TIFF logo, applying EXIF
// orientation.
func DecodeLogo(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("qr: decoding logo: %w", err)
	}
	return img, nil
}

// IsDataURL reports whether ref is an inline data: URL.
func IsDataURL(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// ParseDataURL returns the payload and media type of a data: URL.
func ParseDataURL(ref string) ([]byte, string, error) {
	if !IsDataURL(ref) {
		return nil, "", ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
		}
		return data, mediaType, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return []byte(data), mediaType, nil
}

// DecodeDataURL decodes an image held in a data: URL.
func DecodeDataURL(ref string) (image.Image, error) {
	data, _, err := ParseDataURL(ref)
	if err != nil {
		return nil, err
	}
	return DecodeLogo(bytes.NewReader(data))
}
