package qr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

var (
	ErrEmptyPayload   = errors.New("qr: payload is empty")
	ErrPayloadTooLong = errors.New("qr: payload exceeds capacity")
	ErrInvalidMargin  = errors.New("qr: margin must not be negative")
	ErrInvalidLevel   = errors.New("qr: unknown error correction level")
)

const (
	minModules = 21
	maxModules = 177
)

// Level is the error correction level of a symbol.
type Level string

const (
	LevelL Level = "L"
	LevelM Level = "M"
	LevelQ Level = "Q"
	LevelH Level = "H"
)

// ParseLevel accepts L, M, Q or H in any case.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelL, LevelM, LevelQ, LevelH:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

func (l Level) recovery() (qrcode.RecoveryLevel, error) {
	switch l {
	case LevelL:
		return qrcode.Low, nil
	case LevelM:
		return qrcode.Medium, nil
	case LevelQ:
		return qrcode.High, nil
	case LevelH:
		return qrcode.Highest, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, string(l))
}

// Matrix is the logical module grid of an encoded symbol, without quiet zone.
type Matrix struct {
	Size    int
	Version int
	Margin  int
	Level   Level

	modules [][]bool
}

// Dark reports whether the module at col, row is dark. Out of range is light.
func (m *Matrix) Dark(col, row int) bool {
	if col < 0 || row < 0 || col >= m.Size || row >= m.Size {
		return false
	}
	return m.modules[row][col]
}

// Encode builds the module matrix for payload. The smallest version that fits
// the payload at level is chosen.
func Encode(payload string, level Level, margin int) (*Matrix, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	if margin < 0 {
		return nil, ErrInvalidMargin
	}
	recovery, err := level.recovery()
	if err != nil {
		return nil, err
	}

	code, err := qrcode.New(payload, recovery)
	if err != nil {
		return nil, fmt.Errorf("%w at level %s: %v", ErrPayloadTooLong, level, err)
	}
	code.DisableBorder = true

	bitmap := code.Bitmap()
	m := &Matrix{
		Size:    len(bitmap),
		Version: code.VersionNumber,
		Margin:  margin,
		Level:   level,
		modules: bitmap,
	}
	if !IsStandardSize(m.Size) {
		return nil, fmt.Errorf("qr: encoder returned non-standard size %d", m.Size)
	}
	return m, nil
}

// IsStandardSize reports whether n is a valid module count (21, 25, ... 177).
func IsStandardSize(n int) bool {
	return n >= minModules && n <= maxModules && (n-minModules)%4 == 0
}

// finder reports whether col, row belongs to one of the three 7x7 finder patterns.
func (m *Matrix) finder(col, row int) bool {
	return inSquare(col, row, 0, 0, 7) ||
		inSquare(col, row, m.Size-7, 0, 7) ||
		inSquare(col, row, 0, m.Size-7, 7)
}

// reserved reports whether col, row lies in one of the 9x9 zones anchored at the
// finder corners. Pattern styling never applies there.
func (m *Matrix) reserved(col, row int) bool {
	return inSquare(col, row, 0, 0, 9) ||
		inSquare(col, row, m.Size-9, 0, 9) ||
		inSquare(col, row, 0, m.Size-9, 9)
}

func inSquare(col, row, x, y, n int) bool {
	return col >= x && col < x+n && row >= y && row < y+n
}
