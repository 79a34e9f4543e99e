package qr

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
)

// pdfEpoch is stamped as creation date so identical scenes give identical files.
var pdfEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// WritePDF writes the scene as a single page PDF, one point per pixel.
func (s *Scene) WritePDF(w io.Writer) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: float64(s.Width), Ht: float64(s.Height)},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.AddPage()

	pdfFill(pdf, s.Background)
	pdf.Rect(0, 0, float64(s.Width), float64(s.Height), "F")

	for i, op := range s.Ops {
		switch op.Kind {
		case OpImage:
			var buf bytes.Buffer
			if err := png.Encode(&buf, imaging.Clone(op.Image)); err != nil {
				return fmt.Errorf("qr: encoding logo for pdf: %w", err)
			}
			name := fmt.Sprintf("logo-%d", i)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, opts, &buf)
			pdf.ClipCircle(op.X+op.W/2, op.Y+op.H/2, min(op.W, op.H)/2, false)
			pdf.ImageOptions(name, op.X, op.Y, op.W, op.H, false, opts, 0, "")
			pdf.ClipEnd()
			continue
		case OpStroke:
			pdf.SetDrawColor(int(op.Color.R), int(op.Color.G), int(op.Color.B))
			pdf.SetLineWidth(op.LineWidth)
			if len(op.Dash) > 0 {
				pdf.SetDashPattern(op.Dash, 0)
			}
		default:
			pdfFill(pdf, op.Color)
		}

		style := "F"
		if op.Kind == OpStroke {
			style = "D"
		}
		switch op.Prim {
		case PrimRect:
			pdf.Rect(op.X, op.Y, op.W, op.H, style)
		case PrimCircle:
			pdf.Circle(op.X, op.Y, op.R, style)
		case PrimPath:
			for _, seg := range op.Path {
				switch seg.Kind {
				case SegMove:
					pdf.MoveTo(seg.P.X, seg.P.Y)
				case SegLine:
					pdf.LineTo(seg.P.X, seg.P.Y)
				case SegQuad:
					pdf.CurveTo(seg.C.X, seg.C.Y, seg.P.X, seg.P.Y)
				case SegClose:
					pdf.ClosePath()
				}
			}
			pdf.DrawPath(style)
		}

		if op.Kind == OpStroke && len(op.Dash) > 0 {
			pdf.SetDashPattern([]float64{}, 0)
		}
		if op.Color.A != 0xff {
			pdf.SetAlpha(1, "Normal")
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("qr: building pdf: %w", err)
	}
	return pdf.Output(w)
}

func pdfFill(pdf *fpdf.Fpdf, c color.NRGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	if c.A != 0xff {
		pdf.SetAlpha(float64(c.A)/255, "Normal")
	}
}
