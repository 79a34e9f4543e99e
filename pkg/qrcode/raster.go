package qr

import (
	"image"
	"image/draw"

	"github.com/fogleman/gg"
)

// Raster paints the scene on a fresh canvas. The canvas is never reused, so
// nothing from an earlier render can bleed through.
func (s *Scene) Raster() *image.RGBA {
	dc := gg.NewContext(s.Width, s.Height)
	dc.SetColor(s.Background)
	dc.Clear()
	canvas := dc.Image().(*image.RGBA)

	for _, op := range s.Ops {
		switch {
		case op.Kind == OpFill && op.aligned():
			// Blit grid-aligned rects so adjacent modules tile exactly.
			r := image.Rect(int(op.X), int(op.Y), int(op.X+op.W), int(op.Y+op.H))
			draw.Draw(canvas, r, image.NewUniform(op.Color), image.Point{}, draw.Over)
		case op.Kind == OpImage:
			dc.DrawCircle(op.X+op.W/2, op.Y+op.H/2, min(op.W, op.H)/2)
			dc.Clip()
			dc.DrawImage(op.Image, int(op.X), int(op.Y))
			dc.ResetClip()
		case op.Kind == OpStroke:
			tracePath(dc, op)
			dc.SetColor(op.Color)
			dc.SetLineWidth(op.LineWidth)
			dc.SetDash(op.Dash...)
			dc.Stroke()
			dc.SetDash()
		default:
			tracePath(dc, op)
			dc.SetColor(op.Color)
			dc.Fill()
		}
	}
	return canvas
}

func tracePath(dc *gg.Context, op Op) {
	switch op.Prim {
	case PrimRect:
		dc.DrawRectangle(op.X, op.Y, op.W, op.H)
	case PrimCircle:
		dc.DrawCircle(op.X, op.Y, op.R)
	case PrimPath:
		for _, seg := range op.Path {
			switch seg.Kind {
			case SegMove:
				dc.MoveTo(seg.P.X, seg.P.Y)
			case SegLine:
				dc.LineTo(seg.P.X, seg.P.Y)
			case SegQuad:
				dc.QuadraticTo(seg.C.X, seg.C.Y, seg.P.X, seg.P.Y)
			case SegClose:
				dc.ClosePath()
			}
		}
	}
}
