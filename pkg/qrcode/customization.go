package qr

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidCustomization = errors.New("qr: invalid customization")
	ErrInvalidColor         = errors.New("qr: invalid color")
)

const (
	MinSize = 100
	MaxSize = 2000

	// DefaultLogoSize is used when a logo sets neither size nor scale.
	DefaultLogoSize = 40
)

// Pattern is the shape of every data module.
type Pattern string

const (
	PatternSquares       Pattern = "squares"
	PatternDots          Pattern = "dots"
	PatternRounded       Pattern = "rounded"
	PatternExtraRounded  Pattern = "extra-rounded"
	PatternDiamonds      Pattern = "diamonds"
	PatternClassy        Pattern = "classy"
	PatternClassyRounded Pattern = "classy-rounded"
)

// EyeStyle is the geometry of one finder pattern region.
type EyeStyle string

const (
	EyeSquare  EyeStyle = "square"
	EyeCircle  EyeStyle = "circle"
	EyeRounded EyeStyle = "rounded"
	EyeDiamond EyeStyle = "diamond"
)

// Frame is the decorative border drawn around the symbol.
type Frame string

const (
	FrameNone    Frame = "none"
	FrameSquare  Frame = "square"
	FrameRounded Frame = "rounded"
	FrameCircle  Frame = "circle"
	FrameDashed  Frame = "dashed"
)

// Color is a hex color: #RGB, #RRGGBB or #RRGGBBAA.
type Color string

// NRGBA parses the color. The alpha is not premultiplied.
func (c Color) NRGBA() (color.NRGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(string(c)), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, string(c))
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, string(c))
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

type Colors struct {
	Background Color `json:"background" mapstructure:"background"`
	Foreground Color `json:"foreground" mapstructure:"foreground"`
	Eye        Color `json:"eyeColor" mapstructure:"eye-color"`
	Frame      Color `json:"frameColor" mapstructure:"frame-color"`
}

type EyeShape struct {
	Outer EyeStyle `json:"outerShape" mapstructure:"outer"`
	Inner EyeStyle `json:"innerShape" mapstructure:"inner"`
}

// Logo references an image drawn at the centre of the symbol. Size in pixels
// wins over Scale, a fraction of the customization size.
//
// A logo is only safe at level H and while it covers a small part of the
// matrix; the renderer warns about both but never corrects them.
type Logo struct {
	URL            string  `json:"url" mapstructure:"url"`
	Size           int     `json:"size,omitempty" mapstructure:"size"`
	Scale          float64 `json:"scale,omitempty" mapstructure:"scale"`
	HideBackground bool    `json:"hideBackground" mapstructure:"hide-background"`
}

// Customization controls how a symbol is drawn.
type Customization struct {
	Size                 int      `json:"size" mapstructure:"size"`
	Margin               int      `json:"margin" mapstructure:"margin"`
	ErrorCorrectionLevel Level    `json:"errorCorrectionLevel" mapstructure:"error-correction-level"`
	Colors               Colors   `json:"colors" mapstructure:"colors"`
	Pattern              Pattern  `json:"pattern" mapstructure:"pattern"`
	EyeShape             EyeShape `json:"eyeShape" mapstructure:"eye-shape"`
	Frame                Frame    `json:"frame" mapstructure:"frame"`
	Logo                 *Logo    `json:"logo,omitempty" mapstructure:"logo"`
}

// Default returns a plain black on white customization.
func Default() Customization {
	return Customization{
		Size:                 300,
		Margin:               2,
		ErrorCorrectionLevel: LevelH,
		Colors: Colors{
			Background: "#ffffff",
			Foreground: "#000000",
			Eye:        "#000000",
			Frame:      "#000000",
		},
		Pattern:  PatternSquares,
		EyeShape: EyeShape{Outer: EyeSquare, Inner: EyeSquare},
		Frame:    FrameNone,
	}
}

// Clone returns a deep copy, so a render never shares the logo with the caller.
func (c Customization) Clone() Customization {
	if c.Logo != nil {
		l := *c.Logo
		c.Logo = &l
	}
	return c
}

// Styled reports whether anything beyond plain squares is drawn.
func (c Customization) Styled() bool {
	return c.Pattern != PatternSquares ||
		c.EyeShape.Outer != EyeSquare ||
		c.EyeShape.Inner != EyeSquare ||
		c.Logo != nil
}

// LogoSize returns the logo edge in pixels, or 0 without a logo.
func (c Customization) LogoSize() int {
	if c.Logo == nil || c.Logo.URL == "" {
		return 0
	}
	switch {
	case c.Logo.Size > 0:
		return c.Logo.Size
	case c.Logo.Scale > 0:
		return int(math.Round(float64(c.Size) * c.Logo.Scale))
	}
	return DefaultLogoSize
}

// Validate checks the descriptor against a matrix of moduleCount modules.
// Pass 0 to skip the size check.
func (c Customization) Validate(moduleCount int) error {
	if c.Size < MinSize || c.Size > MaxSize {
		return fmt.Errorf("%w: size %d out of range [%d, %d]", ErrInvalidCustomization, c.Size, MinSize, MaxSize)
	}
	if c.Margin < 0 {
		return fmt.Errorf("%w: negative margin %d", ErrInvalidCustomization, c.Margin)
	}
	if moduleCount > 0 && c.Size < moduleCount+2*c.Margin {
		return fmt.Errorf("%w: size %d is smaller than %d modules", ErrInvalidCustomization, c.Size, moduleCount+2*c.Margin)
	}
	if _, err := ParseLevel(string(c.ErrorCorrectionLevel)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCustomization, err)
	}
	for _, col := range []Color{c.Colors.Background, c.Colors.Foreground, c.Colors.Eye, c.Colors.Frame} {
		if _, err := col.NRGBA(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCustomization, err)
		}
	}
	switch c.Pattern {
	case PatternSquares, PatternDots, PatternRounded, PatternExtraRounded,
		PatternDiamonds, PatternClassy, PatternClassyRounded:
	default:
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidCustomization, c.Pattern)
	}
	for _, s := range []EyeStyle{c.EyeShape.Outer, c.EyeShape.Inner} {
		switch s {
		case EyeSquare, EyeCircle, EyeRounded, EyeDiamond:
		default:
			return fmt.Errorf("%w: unknown eye shape %q", ErrInvalidCustomization, s)
		}
	}
	switch c.Frame {
	case FrameNone, FrameSquare, FrameRounded, FrameCircle, FrameDashed:
	default:
		return fmt.Errorf("%w: unknown frame %q", ErrInvalidCustomization, c.Frame)
	}
	if c.Logo != nil {
		if c.Logo.Size < 0 || c.Logo.Scale < 0 || c.Logo.Scale > 1 {
			return fmt.Errorf("%w: logo size out of range", ErrInvalidCustomization)
		}
		if c.LogoSize() > c.Size/2 {
			return fmt.Errorf("%w: logo of %dpx is larger than half the symbol", ErrInvalidCustomization, c.LogoSize())
		}
	}
	return nil
}

// Contrast returns the WCAG contrast ratio between foreground and background.
func (c Customization) Contrast() (float64, error) {
	fg, err := c.Colors.Foreground.NRGBA()
	if err != nil {
		return 0, err
	}
	bg, err := c.Colors.Background.NRGBA()
	if err != nil {
		return 0, err
	}
	l1, l2 := luminance(fg), luminance(bg)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05), nil
}

func luminance(c color.NRGBA) float64 {
	channel := func(v uint8) float64 {
		s := float64(v) / 255
		if s <= 0.03928 {
			return s / 12.92
		}
		return math.Pow((s+0.055)/1.055, 2.4)
	}
	return 0.2126*channel(c.R) + 0.7152*channel(c.G) + 0.0722*channel(c.B)
}
