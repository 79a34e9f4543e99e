package qr

import (
	"errors"
	"image"
	"image/color"
	"math"
)

var ErrNoSymbol = errors.New("qr: no symbol found in image")

// dark reports whether a pixel is closer to black than to white.
func dark(c color.Color) bool {
	g := color.GrayModel.Convert(c).(color.Gray)
	_, _, _, a := c.RGBA()
	return a > 0x7fff && g.Y < 128
}

// darkBounds returns the smallest rectangle holding every dark pixel.
func darkBounds(img image.Image) image.Rectangle {
	b := img.Bounds()
	area := image.Rectangle{Min: b.Max, Max: b.Min}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !dark(img.At(x, y)) {
				continue
			}
			area.Min.X, area.Min.Y = min(area.Min.X, x), min(area.Min.Y, y)
			area.Max.X, area.Max.Y = max(area.Max.X, x+1), max(area.Max.Y, y+1)
		}
	}
	if area.Empty() {
		return image.Rectangle{}
	}
	return area
}

// ModuleCount derives the module count of an unstyled symbol drawn in img and
// the area the modules occupy. The top-left finder row is 7 modules of dark,
// which gives a first estimate. A one pixel error in that run moves the
// estimate by tol modules, so candidates are scored in units of tol, plus how
// far their module width is from a whole pixel count.
func ModuleCount(img image.Image) (int, image.Rectangle, error) {
	area := darkBounds(img)
	if area.Empty() || area.Dx() < minModules || area.Dy() < minModules {
		return 0, area, ErrNoSymbol
	}

	run := 0
	for x := area.Min.X; x < area.Max.X && dark(img.At(x, area.Min.Y)); x++ {
		run++
	}
	if run == 0 {
		return 0, area, ErrNoSymbol
	}
	estimate := float64(area.Dx()) * 7 / float64(run)
	tol := estimate / float64(run)

	best, bestErr := 0, math.Inf(1)
	for n := minModules; n <= maxModules; n += 4 {
		if math.Abs(float64(n)-estimate) > max(4, 2*tol) {
			continue
		}
		w := float64(area.Dx()) / float64(n)
		if e := math.Abs(w-math.Round(w)) + math.Abs(float64(n)-estimate)/tol; e < bestErr {
			best, bestErr = n, e
		}
	}
	if best == 0 {
		return 0, area, ErrNoSymbol
	}
	return best, area, nil
}

// MatrixFromImage rebuilds the module grid of an unstyled symbol by sampling
// the centre of every module.
func MatrixFromImage(img image.Image, level Level) (*Matrix, error) {
	n, area, err := ModuleCount(img)
	if err != nil {
		return nil, err
	}
	if _, err := level.recovery(); err != nil {
		return nil, err
	}

	w := float64(area.Dx()) / float64(n)
	h := float64(area.Dy()) / float64(n)
	modules := make([][]bool, n)
	for row := range modules {
		modules[row] = make([]bool, n)
		y := area.Min.Y + int(float64(row)*h+h/2)
		for col := range modules[row] {
			x := area.Min.X + int(float64(col)*w+w/2)
			modules[row][col] = dark(img.At(x, y))
		}
	}

	margin := int(math.Round(float64(area.Min.X-img.Bounds().Min.X) / w))
	return &Matrix{
		Size:    n,
		Version: (n - 17) / 4,
		Margin:  margin,
		Level:   level,
		modules: modules,
	}, nil
}
