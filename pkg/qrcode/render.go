package qr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
)

var ErrRender = errors.New("qr: styled rendering failed")

const (
	// FrameOffset is the padding added on every side when a frame is drawn.
	FrameOffset     = 20
	frameLineWidth  = 4
	frameRadius     = 20
	logoPadding     = 8
	logoBorderWidth = 2

	// SafeLogoCoverage is the share of the matrix area a logo clear disc may
	// take before the renderer warns about scannability.
	SafeLogoCoverage = 0.2
	minContrast      = 3.0
)

type WarningCode string

const (
	WarnFallback        WarningCode = "fallback"
	WarnLowLevel        WarningCode = "low_error_correction"
	WarnLogoCoverage    WarningCode = "logo_coverage"
	WarnLogoUnavailable WarningCode = "logo_unavailable"
	WarnLowContrast     WarningCode = "low_contrast"
)

// Warning is a non-fatal problem found while rendering.
type Warning struct {
	Code    WarningCode
	Message string
	Err     error
}

func (w Warning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("%s: %s: %v", w.Code, w.Message, w.Err)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// LogoSource loads the logo referenced by a customization.
type LogoSource interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// LogoSourceFunc adapts a function to LogoSource.
type LogoSourceFunc func(ctx context.Context, url string) (image.Image, error)

func (f LogoSourceFunc) Load(ctx context.Context, url string) (image.Image, error) {
	return f(ctx, url)
}

// Result is a finished render. Scene is never nil.
type Result struct {
	Scene         *Scene
	Matrix        *Matrix
	Customization Customization
	Fallback      bool
	Warnings      []Warning
}

// Warned reports whether a warning with code was raised.
func (r *Result) Warned(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Renderer draws styled symbols. It holds no per-render state and is safe
// for concurrent use.
type Renderer struct {
	logos LogoSource
}

// NewRenderer returns a renderer loading logos from logos, which may be nil
// when logos are not supported.
func NewRenderer(logos LogoSource) *Renderer {
	return &Renderer{logos: logos}
}

// Render encodes payload and draws it with c. Encoding errors are returned;
// any styling problem degrades to the plain symbol with a warning.
func (r *Renderer) Render(ctx context.Context, payload string, c Customization) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c = c.Normalize().Clone()

	m, err := Encode(payload, c.ErrorCorrectionLevel, c.Margin)
	switch {
	case errors.Is(err, ErrInvalidLevel), errors.Is(err, ErrInvalidMargin):
		res, perr := Plain(payload, c)
		if perr != nil {
			return nil, perr
		}
		res.Fallback = true
		res.Warnings = append(res.Warnings, Warning{Code: WarnFallback, Message: "using fallback style", Err: err})
		return res, nil
	case err != nil:
		return nil, err
	}
	return r.RenderMatrix(ctx, m, c)
}

// RenderMatrix draws an already encoded matrix.
func (r *Renderer) RenderMatrix(ctx context.Context, m *Matrix, c Customization) (*Result, error) {
	c = c.Normalize().Clone()

	res, err := r.styled(ctx, m, c)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	res = PlainMatrix(m, c)
	res.Fallback = true
	res.Warnings = append(res.Warnings, Warning{Code: WarnFallback, Message: "using fallback style", Err: err})
	return res, nil
}

type logoResult struct {
	img image.Image
	err error
}

func (r *Renderer) styled(ctx context.Context, m *Matrix, c Customization) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("%w: %v", ErrRender, p)
		}
	}()

	if err = c.Validate(m.Size); err != nil {
		return nil, err
	}

	// Start the logo fetch first; modules and eyes do not depend on it.
	var logoCh <-chan logoResult
	if c.LogoSize() > 0 && r.logos != nil {
		ch := make(chan logoResult, 1)
		go func(url string) {
			img, err := r.logos.Load(ctx, url)
			ch <- logoResult{img: img, err: err}
		}(c.Logo.URL)
		logoCh = ch
	}

	fg, _ := c.Colors.Foreground.NRGBA()
	bg, _ := c.Colors.Background.NRGBA()
	eye, _ := c.Colors.Eye.NRGBA()
	frame, _ := c.Colors.Frame.NRGBA()

	offset := frameOffset(c, m)
	canvas := c.Size + 2*offset
	g := newGrid(float64(offset), c.Size, c.Margin, m.Size)
	scene := newScene(canvas, canvas, bg)
	res = &Result{Scene: scene, Matrix: m, Customization: c}
	res.Warnings = append(res.Warnings, checkWarnings(c, m, g)...)

	centre := float64(offset) + float64(c.Size)/2
	logoSize := float64(c.LogoSize())
	disc := logoSize/2 + logoPadding

	// Modules fully under the logo disc; dropped once the logo is known.
	var hidden []int
	for row := 0; row < m.Size; row++ {
		for col := 0; col < m.Size; col++ {
			if !m.Dark(col, row) || m.finder(col, row) {
				continue
			}
			x, y, w, h := g.cell(col, row)
			if m.reserved(col, row) {
				scene.fillRect(x, y, w, h, fg)
				continue
			}
			if logoSize > 0 && insideDisc(x, y, w, h, centre, disc) {
				hidden = append(hidden, len(scene.Ops))
			}
			scene.drawModule(c.Pattern, x, y, w, h, fg)
		}
	}

	for _, corner := range [][2]int{{0, 0}, {m.Size - 7, 0}, {0, m.Size - 7}} {
		drawEye(scene, g, corner[0], corner[1], c.EyeShape, eye, bg)
	}

	if c.LogoSize() > 0 {
		logo, warn := awaitLogo(ctx, logoCh)
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if warn != nil {
			res.Warnings = append(res.Warnings, *warn)
		} else {
			if c.Logo.HideBackground {
				scene.Ops = dropOps(scene.Ops, hidden)
			}
			drawLogo(scene, logo, centre, logoSize, bg, eye)
		}
	}

	if c.Frame != FrameNone {
		drawFrame(scene, c, m, offset, frame)
	}
	return res, nil
}

func awaitLogo(ctx context.Context, ch <-chan logoResult) (image.Image, *Warning) {
	if ch == nil {
		return nil, &Warning{Code: WarnLogoUnavailable, Message: "no logo source configured"}
	}
	select {
	case <-ctx.Done():
		return nil, &Warning{Code: WarnLogoUnavailable, Message: "logo load cancelled", Err: ctx.Err()}
	case lr := <-ch:
		if lr.err != nil {
			return nil, &Warning{Code: WarnLogoUnavailable, Message: "logo could not be loaded", Err: lr.err}
		}
		if lr.img == nil || lr.img.Bounds().Empty() {
			return nil, &Warning{Code: WarnLogoUnavailable, Message: "logo image is empty"}
		}
		return lr.img, nil
	}
}

// grid maps module indices to canvas pixels. Edges are rounded to whole
// pixels so neighbouring cells tile without seams.
type grid struct {
	origin float64
	module float64
}

func newGrid(offset float64, size, margin, modules int) grid {
	module := float64(size) / float64(modules+2*margin)
	return grid{origin: offset + float64(margin)*module, module: module}
}

func (g grid) edge(i int) float64 {
	return math.Round(g.origin + float64(i)*g.module)
}

func (g grid) cell(col, row int) (x, y, w, h float64) {
	x, y = g.edge(col), g.edge(row)
	return x, y, g.edge(col+1) - x, g.edge(row+1) - y
}

// drawEye draws the finder pattern whose top-left module is col, row as
// three nested regions with the 7:5:3 proportions of the standard pattern.
func drawEye(s *Scene, g grid, col, row int, shape EyeShape, eye, bg color.NRGBA) {
	box := func(inset int) (x, y, w, h float64) {
		x, y = g.edge(col+inset), g.edge(row+inset)
		return x, y, g.edge(col+7-inset) - x, g.edge(row+7-inset) - y
	}
	x, y, w, h := box(0)
	s.drawEyeRegion(shape.Outer, x, y, w, h, eye)
	x, y, w, h = box(1)
	s.drawEyeRegion(shape.Outer, x, y, w, h, bg)
	x, y, w, h = box(2)
	if shape.Outer == EyeDiamond && shape.Inner != EyeDiamond && shape.Inner != EyeCircle {
		// A square inner region only fits the middle diamond as its inscribed
		// square; the 3/7 box would touch the outer ring.
		mx, my, mw, mh := box(1)
		x, y, w, h = mx+mw/4, my+mh/4, mw/2, mh/2
	}
	s.drawEyeRegion(shape.Inner, x, y, w, h, eye)
}

func drawLogo(s *Scene, logo image.Image, centre, size float64, bg, border color.NRGBA) {
	disc := size/2 + logoPadding
	s.fillCircle(centre, centre, disc, bg)
	s.stroke(Op{Prim: PrimCircle, X: centre, Y: centre, R: disc}, border, logoBorderWidth, nil)

	scaled := resize.Resize(uint(size), uint(size), logo, resize.Lanczos3)
	s.image(scaled, math.Round(centre-size/2), math.Round(centre-size/2), size, size)
}

func frameOffset(c Customization, m *Matrix) int {
	switch c.Frame {
	case FrameNone, "":
		return 0
	case FrameCircle:
		half := float64(c.Size) / 2
		need := circleFrameRadius(c, m) + frameLineWidth/2 + 2 - half
		return max(FrameOffset, int(math.Ceil(need)))
	}
	return FrameOffset
}

// circleFrameRadius encloses every module of the matrix.
func circleFrameRadius(c Customization, m *Matrix) float64 {
	g := newGrid(0, c.Size, c.Margin, m.Size)
	half := float64(m.Size) * g.module / 2
	return half*math.Sqrt2 + frameLineWidth
}

func drawFrame(s *Scene, c Customization, m *Matrix, offset int, col color.NRGBA) {
	x := float64(offset) - 2
	size := float64(c.Size) + 4
	switch c.Frame {
	case FrameSquare:
		s.stroke(Op{Prim: PrimRect, X: x, Y: x, W: size, H: size}, col, frameLineWidth, nil)
	case FrameDashed:
		s.stroke(Op{Prim: PrimRect, X: x, Y: x, W: size, H: size}, col, frameLineWidth, []float64{10, 5})
	case FrameRounded:
		r := float64(frameRadius)
		s.stroke(Op{Prim: PrimPath, Path: roundedRectPath(x, x, size, size, [4]float64{r, r, r, r})}, col, frameLineWidth, nil)
	case FrameCircle:
		centre := float64(s.Width) / 2
		s.stroke(Op{Prim: PrimCircle, X: centre, Y: centre, R: circleFrameRadius(c, m)}, col, frameLineWidth, nil)
	}
}

func insideDisc(x, y, w, h, centre, r float64) bool {
	for _, p := range []Point{{x, y}, {x + w, y}, {x, y + h}, {x + w, y + h}} {
		if math.Hypot(p.X-centre, p.Y-centre) > r {
			return false
		}
	}
	return true
}

// dropOps removes the ops at the given ascending indices.
func dropOps(ops []Op, idx []int) []Op {
	if len(idx) == 0 {
		return ops
	}
	out := ops[:0]
	next := 0
	for i, op := range ops {
		if next < len(idx) && idx[next] == i {
			next++
			continue
		}
		out = append(out, op)
	}
	return out
}

func checkWarnings(c Customization, m *Matrix, g grid) []Warning {
	var warns []Warning
	if c.Styled() && c.ErrorCorrectionLevel != LevelH {
		warns = append(warns, Warning{
			Code:    WarnLowLevel,
			Message: fmt.Sprintf("styled symbol at level %s may not scan, use H", c.ErrorCorrectionLevel),
		})
	}
	if size := c.LogoSize(); size > 0 {
		disc := float64(size)/2 + logoPadding
		side := float64(m.Size) * g.module
		if cover := math.Pi * disc * disc / (side * side); cover > SafeLogoCoverage {
			warns = append(warns, Warning{
				Code:    WarnLogoCoverage,
				Message: fmt.Sprintf("logo covers %.0f%% of the symbol", cover*100),
			})
		}
	}
	if ratio, err := c.Contrast(); err == nil && ratio < minContrast {
		warns = append(warns, Warning{
			Code:    WarnLowContrast,
			Message: fmt.Sprintf("contrast ratio %.1f:1 is below %.0f:1", ratio, minContrast),
		})
	}
	return warns
}

// Plain encodes payload and draws it with foreground squares on the
// background only. It succeeds whenever encoding succeeds.
func Plain(payload string, c Customization) (*Result, error) {
	c = c.Normalize()
	if _, err := ParseLevel(string(c.ErrorCorrectionLevel)); err != nil {
		c.ErrorCorrectionLevel = LevelM
	}
	c.Margin = max(c.Margin, 0)

	m, err := Encode(payload, c.ErrorCorrectionLevel, c.Margin)
	if err != nil {
		return nil, err
	}
	return PlainMatrix(m, c), nil
}

// PlainMatrix draws m unstyled. Unparsable colors fall back to black on
// white and the size is raised to one pixel per module when needed.
func PlainMatrix(m *Matrix, c Customization) *Result {
	c.Margin = max(c.Margin, 0)
	fg, err := c.Colors.Foreground.NRGBA()
	if err != nil {
		fg = color.NRGBA{A: 255}
	}
	bg, err := c.Colors.Background.NRGBA()
	if err != nil {
		bg = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	size := c.Size
	if size <= 0 || size > MaxSize {
		size = Default().Size
	}
	size = max(size, m.Size+2*c.Margin)

	g := newGrid(0, size, c.Margin, m.Size)
	scene := newScene(size, size, bg)
	for row := 0; row < m.Size; row++ {
		for col := 0; col < m.Size; col++ {
			if m.Dark(col, row) {
				x, y, w, h := g.cell(col, row)
				scene.fillRect(x, y, w, h, fg)
			}
		}
	}

	c.Size = size
	c.Pattern = PatternSquares
	c.EyeShape = EyeShape{Outer: EyeSquare, Inner: EyeSquare}
	c.Frame = FrameNone
	c.Logo = nil
	return &Result{Scene: scene, Matrix: m, Customization: c}
}
