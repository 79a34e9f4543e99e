package qr

import "image/color"

// drawModule adds one data module of the given pattern in the cell x, y, w, h.
func (s *Scene) drawModule(p Pattern, x, y, w, h float64, c color.NRGBA) {
	switch p {
	case PatternDots:
		s.fillCircle(x+w/2, y+h/2, min(w, h)/2, c)
	case PatternRounded:
		r := min(w, h) / 4
		s.fillPath(roundedRectPath(x, y, w, h, [4]float64{r, r, r, r}), c)
	case PatternExtraRounded:
		r := min(w, h) * 0.4
		s.fillPath(roundedRectPath(x, y, w, h, [4]float64{r, r, r, r}), c)
	case PatternDiamonds:
		s.fillPath(polygonPath(
			Point{x + w/2, y},
			Point{x + w, y + h/2},
			Point{x + w/2, y + h},
			Point{x, y + h/2},
		), c)
	case PatternClassy:
		r := min(w, h) / 2
		s.fillPath(roundedRectPath(x, y, w, h, [4]float64{r, 0, r, 0}), c)
	case PatternClassyRounded:
		r := min(w, h) / 2
		q := min(w, h) / 6
		s.fillPath(roundedRectPath(x, y, w, h, [4]float64{r, q, r, q}), c)
	default:
		s.fillRect(x, y, w, h, c)
	}
}

// drawEyeRegion fills one region of a finder pattern. Regions are boxes on
// the module grid; the style decides what is inscribed in the box.
func (s *Scene) drawEyeRegion(style EyeStyle, x, y, w, h float64, c color.NRGBA) {
	switch style {
	case EyeCircle:
		s.fillCircle(x+w/2, y+h/2, min(w, h)/2, c)
	case EyeRounded:
		r := min(w, h) / 6
		s.fillPath(roundedRectPath(x, y, w, h, [4]float64{r, r, r, r}), c)
	case EyeDiamond:
		s.fillPath(polygonPath(
			Point{x + w/2, y},
			Point{x + w, y + h/2},
			Point{x + w/2, y + h},
			Point{x, y + h/2},
		), c)
	default:
		s.fillRect(x, y, w, h, c)
	}
}
