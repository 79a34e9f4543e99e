package qr

import "strings"

// Presets are ready-made customizations selectable by name.
var Presets = map[string]Customization{
	"classic": Default(),
	"modern": {
		Size:                 300,
		Margin:               2,
		ErrorCorrectionLevel: LevelH,
		Colors:               Colors{Background: "#ffffff", Foreground: "#000000", Eye: "#2563eb", Frame: "#1f2937"},
		Pattern:              PatternRounded,
		EyeShape:             EyeShape{Outer: EyeRounded, Inner: EyeCircle},
		Frame:                FrameRounded,
	},
	"colorful": {
		Size:                 300,
		Margin:               2,
		ErrorCorrectionLevel: LevelH,
		Colors:               Colors{Background: "#f0f9ff", Foreground: "#ec4899", Eye: "#8b5cf6", Frame: "#06b6d4"},
		Pattern:              PatternDots,
		EyeShape:             EyeShape{Outer: EyeCircle, Inner: EyeCircle},
		Frame:                FrameCircle,
	},
	"elegant": {
		Size:                 300,
		Margin:               3,
		ErrorCorrectionLevel: LevelH,
		Colors:               Colors{Background: "#fafafa", Foreground: "#1f2937", Eye: "#059669", Frame: "#6b7280"},
		Pattern:              PatternDiamonds,
		EyeShape:             EyeShape{Outer: EyeRounded, Inner: EyeRounded},
		Frame:                FrameSquare,
	},
}

// Preset returns a copy of the named preset.
func Preset(name string) (Customization, bool) {
	c, ok := Presets[strings.ToLower(strings.TrimSpace(name))]
	return c.Clone(), ok
}

// Normalize fills empty fields from Default and maps legacy names
// ("circles", "square" pattern, "simple" frame, ...) onto current ones.
func (c Customization) Normalize() Customization {
	def := Default()
	if c.Size == 0 {
		c.Size = def.Size
	}
	if c.ErrorCorrectionLevel == "" {
		c.ErrorCorrectionLevel = def.ErrorCorrectionLevel
	} else if l, err := ParseLevel(string(c.ErrorCorrectionLevel)); err == nil {
		c.ErrorCorrectionLevel = l
	}
	if c.Colors.Background == "" {
		c.Colors.Background = def.Colors.Background
	}
	if c.Colors.Foreground == "" {
		c.Colors.Foreground = def.Colors.Foreground
	}
	if c.Colors.Eye == "" {
		c.Colors.Eye = c.Colors.Foreground
	}
	if c.Colors.Frame == "" {
		c.Colors.Frame = c.Colors.Foreground
	}

	switch strings.ToLower(string(c.Pattern)) {
	case "", "square", "classic-squares":
		c.Pattern = PatternSquares
	case "circles", "dot":
		c.Pattern = PatternDots
	case "rounded-squares":
		c.Pattern = PatternRounded
	}
	c.EyeShape.Outer = normalizeEye(c.EyeShape.Outer)
	c.EyeShape.Inner = normalizeEye(c.EyeShape.Inner)

	switch strings.ToLower(string(c.Frame)) {
	case "":
		c.Frame = FrameNone
	case "simple":
		c.Frame = FrameSquare
	case "decorative":
		c.Frame = FrameDashed
	}
	if c.Logo != nil && c.Logo.URL == "" {
		c.Logo = nil
	}
	return c
}

func normalizeEye(s EyeStyle) EyeStyle {
	switch strings.ToLower(string(s)) {
	case "", "squares":
		return EyeSquare
	case "dot", "circles":
		return EyeCircle
	case "rounded-square", "extra-rounded":
		return EyeRounded
	}
	return s
}
