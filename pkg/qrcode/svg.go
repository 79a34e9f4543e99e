package qr

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// WriteSVG writes the scene as a self-contained SVG document.
func (s *Scene) WriteSVG(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		s.Width, s.Height, s.Width, s.Height)
	fmt.Fprintf(bw, `<rect width="%d" height="%d" %s/>`, s.Width, s.Height, svgPaint("fill", s.Background))

	clips := 0
	for _, op := range s.Ops {
		if op.Kind == OpImage {
			var buf bytes.Buffer
			if err := png.Encode(&buf, imaging.Clone(op.Image)); err != nil {
				return fmt.Errorf("qr: encoding logo for svg: %w", err)
			}
			clips++
			fmt.Fprintf(bw, `<clipPath id="logo-clip-%d"><circle cx="%s" cy="%s" r="%s"/></clipPath>`,
				clips, num(op.X+op.W/2), num(op.Y+op.H/2), num(min(op.W, op.H)/2))
			fmt.Fprintf(bw, `<image x="%s" y="%s" width="%s" height="%s" clip-path="url(#logo-clip-%d)" href="data:image/png;base64,%s"/>`,
				num(op.X), num(op.Y), num(op.W), num(op.H), clips, base64.StdEncoding.EncodeToString(buf.Bytes()))
			continue
		}

		var paint string
		if op.Kind == OpStroke {
			paint = `fill="none" ` + svgPaint("stroke", op.Color) + ` stroke-width="` + num(op.LineWidth) + `"`
			if len(op.Dash) > 0 {
				dash := make([]string, len(op.Dash))
				for i, d := range op.Dash {
					dash[i] = num(d)
				}
				paint += ` stroke-dasharray="` + strings.Join(dash, " ") + `"`
			}
		} else {
			paint = svgPaint("fill", op.Color)
		}

		switch op.Prim {
		case PrimRect:
			crisp := ""
			if op.aligned() {
				crisp = ` shape-rendering="crispEdges"`
			}
			fmt.Fprintf(bw, `<rect x="%s" y="%s" width="%s" height="%s" %s%s/>`,
				num(op.X), num(op.Y), num(op.W), num(op.H), paint, crisp)
		case PrimCircle:
			fmt.Fprintf(bw, `<circle cx="%s" cy="%s" r="%s" %s/>`, num(op.X), num(op.Y), num(op.R), paint)
		case PrimPath:
			fmt.Fprintf(bw, `<path d="%s" %s/>`, svgPath(op.Path), paint)
		}
	}
	bw.WriteString(`</svg>`)
	return bw.Flush()
}

func svgPath(path []Segment) string {
	var sb strings.Builder
	for _, seg := range path {
		switch seg.Kind {
		case SegMove:
			sb.WriteString("M" + num(seg.P.X) + " " + num(seg.P.Y))
		case SegLine:
			sb.WriteString("L" + num(seg.P.X) + " " + num(seg.P.Y))
		case SegQuad:
			sb.WriteString("Q" + num(seg.C.X) + " " + num(seg.C.Y) + " " + num(seg.P.X) + " " + num(seg.P.Y))
		case SegClose:
			sb.WriteString("Z")
		}
	}
	return sb.String()
}

func svgPaint(attr string, c color.NRGBA) string {
	s := fmt.Sprintf(`%s="#%02x%02x%02x"`, attr, c.R, c.G, c.B)
	if c.A != 0xff {
		s += fmt.Sprintf(` %s-opacity="%s"`, attr, num(float64(c.A)/255))
	}
	return s
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
