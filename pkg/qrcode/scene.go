package qr

import (
	"image"
	"image/color"
	"math"
)

// Primitive is the geometry of an operation.
type Primitive int

const (
	PrimRect Primitive = iota
	PrimCircle
	PrimPath
)

// OpKind tells the backend what to do with the geometry.
type OpKind int

const (
	OpFill OpKind = iota
	OpStroke
	// OpImage draws Image into the rect X, Y, W, H clipped to the circle
	// inscribed in it.
	OpImage
)

// SegKind is a path segment type.
type SegKind int

const (
	SegMove SegKind = iota
	SegLine
	// SegQuad is a quadratic curve with control point C.
	SegQuad
	SegClose
)

type Point struct{ X, Y float64 }

type Segment struct {
	Kind SegKind
	P    Point
	C    Point
}

// Op is one drawing instruction. Rects use X, Y, W, H; circles use X, Y as
// centre and R; paths use Path.
type Op struct {
	Kind      OpKind
	Prim      Primitive
	X, Y      float64
	W, H      float64
	R         float64
	Path      []Segment
	Color     color.NRGBA
	LineWidth float64
	Dash      []float64
	Image     image.Image
}

// Scene is an ordered display list. It is built once per render and shared
// by every output format.
type Scene struct {
	Width      int
	Height     int
	Background color.NRGBA
	Ops        []Op
}

func newScene(w, h int, bg color.NRGBA) *Scene {
	return &Scene{Width: w, Height: h, Background: bg}
}

func (s *Scene) fillRect(x, y, w, h float64, c color.NRGBA) {
	s.Ops = append(s.Ops, Op{Kind: OpFill, Prim: PrimRect, X: x, Y: y, W: w, H: h, Color: c})
}

func (s *Scene) fillCircle(cx, cy, r float64, c color.NRGBA) {
	s.Ops = append(s.Ops, Op{Kind: OpFill, Prim: PrimCircle, X: cx, Y: cy, R: r, Color: c})
}

func (s *Scene) fillPath(p []Segment, c color.NRGBA) {
	s.Ops = append(s.Ops, Op{Kind: OpFill, Prim: PrimPath, Path: p, Color: c})
}

func (s *Scene) stroke(op Op, c color.NRGBA, width float64, dash []float64) {
	op.Kind = OpStroke
	op.Color = c
	op.LineWidth = width
	op.Dash = dash
	s.Ops = append(s.Ops, op)
}

func (s *Scene) image(img image.Image, x, y, w, h float64) {
	s.Ops = append(s.Ops, Op{Kind: OpImage, Prim: PrimRect, X: x, Y: y, W: w, H: h, Image: img})
}

// aligned reports whether a rect sits exactly on the pixel grid.
func (o Op) aligned() bool {
	return o.Prim == PrimRect && whole(o.X) && whole(o.Y) && whole(o.W) && whole(o.H)
}

func whole(v float64) bool { return v == math.Trunc(v) }

func roundedRectPath(x, y, w, h float64, r [4]float64) []Segment {
	tl, tr, br, bl := r[0], r[1], r[2], r[3]
	return []Segment{
		{Kind: SegMove, P: Point{x + tl, y}},
		{Kind: SegLine, P: Point{x + w - tr, y}},
		{Kind: SegQuad, C: Point{x + w, y}, P: Point{x + w, y + tr}},
		{Kind: SegLine, P: Point{x + w, y + h - br}},
		{Kind: SegQuad, C: Point{x + w, y + h}, P: Point{x + w - br, y + h}},
		{Kind: SegLine, P: Point{x + bl, y + h}},
		{Kind: SegQuad, C: Point{x, y + h}, P: Point{x, y + h - bl}},
		{Kind: SegLine, P: Point{x, y + tl}},
		{Kind: SegQuad, C: Point{x, y}, P: Point{x + tl, y}},
		{Kind: SegClose},
	}
}

func polygonPath(pts ...Point) []Segment {
	path := make([]Segment, 0, len(pts)+1)
	for i, p := range pts {
		kind := SegLine
		if i == 0 {
			kind = SegMove
		}
		path = append(path, Segment{Kind: kind, P: p})
	}
	return append(path, Segment{Kind: SegClose})
}
