package qr_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
)

const (
	testURL     = "https://example.com/menu"
	scenarioURL = "https://example.com/qr/abc123"
)

func decode(t *testing.T, img image.Image) (string, error) {
	t.Helper()
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", err
	}
	return res.GetText(), nil
}

func solidLogo(c color.Color) qr.LogoSource {
	return qr.LogoSourceFunc(func(context.Context, string) (image.Image, error) {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				img.Set(x, y, c)
			}
		}
		return img, nil
	})
}

func TestRenderMatchesPlain(t *testing.T) {
	r := qr.NewRenderer(nil)
	for _, size := range []int{100, 250, 300, 517} {
		c := qr.Default()
		c.Size = size

		styled, err := r.Render(context.Background(), testURL, c)
		require.NoError(t, err)
		require.False(t, styled.Fallback)
		assert.Empty(t, styled.Warnings)

		plain, err := qr.Plain(testURL, c)
		require.NoError(t, err)

		assert.Equal(t, plain.Scene.Raster().Pix, styled.Scene.Raster().Pix, "size %d", size)
	}
}

func TestRenderIdempotent(t *testing.T) {
	r := qr.NewRenderer(solidLogo(color.NRGBA{R: 200, A: 255}))
	c, _ := qr.Preset("colorful")
	c.Logo = &qr.Logo{URL: "logo.png", Size: 50}

	first, err := r.Render(context.Background(), testURL, c)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), testURL, c)
	require.NoError(t, err)

	for _, f := range []qr.Format{qr.FormatPNG, qr.FormatSVG} {
		a, err := first.Bytes(f)
		require.NoError(t, err)
		b, err := second.Bytes(f)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(a, b), "format %s", f)
	}
}

func TestRenderScannable(t *testing.T) {
	r := qr.NewRenderer(nil)
	tests := []struct {
		name    string
		pattern qr.Pattern
		eyes    qr.EyeShape
	}{
		{"squares", qr.PatternSquares, qr.EyeShape{Outer: qr.EyeSquare, Inner: qr.EyeSquare}},
		{"dots", qr.PatternDots, qr.EyeShape{Outer: qr.EyeCircle, Inner: qr.EyeCircle}},
		{"rounded", qr.PatternRounded, qr.EyeShape{Outer: qr.EyeRounded, Inner: qr.EyeRounded}},
		{"classy", qr.PatternClassy, qr.EyeShape{Outer: qr.EyeSquare, Inner: qr.EyeSquare}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qr.Default()
			c.Size = 400
			c.Margin = 4
			c.Pattern = tt.pattern
			c.EyeShape = tt.eyes

			res, err := r.Render(context.Background(), testURL, c)
			require.NoError(t, err)
			require.False(t, res.Fallback)
			assert.False(t, res.Warned(qr.WarnLowLevel))

			text, err := decode(t, res.Scene.Raster())
			require.NoError(t, err)
			assert.Equal(t, testURL, text)
		})
	}
}

func TestRenderEveryStyleScannable(t *testing.T) {
	r := qr.NewRenderer(nil)
	patterns := []qr.Pattern{
		qr.PatternSquares, qr.PatternDots, qr.PatternRounded, qr.PatternExtraRounded,
		qr.PatternDiamonds, qr.PatternClassy, qr.PatternClassyRounded,
	}
	eyes := []qr.EyeStyle{qr.EyeSquare, qr.EyeCircle, qr.EyeRounded, qr.EyeDiamond}
	for _, p := range patterns {
		for _, outer := range eyes {
			for _, inner := range eyes {
				t.Run(fmt.Sprintf("%s/%s-%s", p, outer, inner), func(t *testing.T) {
					c := qr.Default()
					c.Size = 400
					c.Margin = 4
					c.Pattern = p
					c.EyeShape = qr.EyeShape{Outer: outer, Inner: inner}

					res, err := r.Render(context.Background(), scenarioURL, c)
					require.NoError(t, err)
					require.False(t, res.Fallback)

					text, err := decode(t, res.Scene.Raster())
					require.NoError(t, err)
					assert.Equal(t, scenarioURL, text)
				})
			}
		}
	}
}

func TestRenderTranslucentColors(t *testing.T) {
	c := qr.Default()
	c.Margin = 0
	c.Colors.Foreground = "#ff000080"
	c.Colors.Eye = "#ff000080"

	res, err := qr.NewRenderer(nil).Render(context.Background(), scenarioURL, c)
	require.NoError(t, err)
	require.False(t, res.Fallback)

	px := res.Scene.Raster().RGBAAt(2, 2)
	assert.InDelta(t, 255, int(px.R), 2)
	assert.InDelta(t, 127, int(px.G), 2)
	assert.InDelta(t, 127, int(px.B), 2)
	assert.Equal(t, uint8(255), px.A)

	svg, err := res.Bytes(qr.FormatSVG)
	require.NoError(t, err)
	assert.Contains(t, string(svg), `fill="#ff0000" fill-opacity="0.50`)
}

// 300x300, margin 2, dots with circular eyes at level H.
func TestRenderDotsScenario(t *testing.T) {
	c := qr.Default()
	c.Size = 300
	c.Margin = 2
	c.Pattern = qr.PatternDots
	c.EyeShape = qr.EyeShape{Outer: qr.EyeCircle, Inner: qr.EyeCircle}

	res, err := qr.NewRenderer(nil).Render(context.Background(), scenarioURL, c)
	require.NoError(t, err)
	require.False(t, res.Fallback)

	img := res.Scene.Raster()
	assert.Equal(t, image.Rect(0, 0, 300, 300), img.Bounds())

	text, err := decode(t, img)
	require.NoError(t, err)
	assert.Equal(t, scenarioURL, text)
}

func TestRenderLogo(t *testing.T) {
	c := qr.Default()
	c.Size = 400
	c.Margin = 4

	bare, err := qr.NewRenderer(nil).Render(context.Background(), testURL, c)
	require.NoError(t, err)

	c.Logo = &qr.Logo{URL: "logo.png", Size: 60}
	res, err := qr.NewRenderer(solidLogo(color.NRGBA{R: 220, G: 30, B: 30, A: 255})).Render(context.Background(), testURL, c)
	require.NoError(t, err)
	require.False(t, res.Fallback)
	assert.False(t, res.Warned(qr.WarnLogoUnavailable))
	assert.False(t, res.Warned(qr.WarnLogoCoverage))

	withLogo := res.Scene.Raster()
	plain := bare.Scene.Raster()

	// Outside the clear disc the symbol is untouched.
	centre := 200.0
	radius := 60.0/2 + 8 + 10
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			if math.Hypot(float64(x)+0.5-centre, float64(y)+0.5-centre) <= radius {
				continue
			}
			require.Equal(t, plain.RGBAAt(x, y), withLogo.RGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
	centrePx := withLogo.RGBAAt(200, 200)
	assert.InDelta(t, 220, int(centrePx.R), 3)
	assert.InDelta(t, 30, int(centrePx.G), 3)

	text, err := decode(t, withLogo)
	require.NoError(t, err)
	assert.Equal(t, testURL, text)
}

func TestRenderLogoHideBackground(t *testing.T) {
	c := qr.Default()
	c.Logo = &qr.Logo{URL: "logo.png", Size: 80}
	r := qr.NewRenderer(solidLogo(color.Black))

	shown, err := r.Render(context.Background(), testURL, c)
	require.NoError(t, err)

	c.Logo.HideBackground = true
	hidden, err := r.Render(context.Background(), testURL, c)
	require.NoError(t, err)

	assert.Less(t, len(hidden.Scene.Ops), len(shown.Scene.Ops))
	assert.Equal(t, shown.Scene.Raster().Pix, hidden.Scene.Raster().Pix)
}

func TestRenderLogoUnavailable(t *testing.T) {
	c := qr.Default()
	bare, err := qr.NewRenderer(nil).Render(context.Background(), testURL, c)
	require.NoError(t, err)

	c.Logo = &qr.Logo{URL: "missing.png", HideBackground: true}
	failing := qr.LogoSourceFunc(func(context.Context, string) (image.Image, error) {
		return nil, errors.New("not found")
	})

	for name, r := range map[string]*qr.Renderer{
		"load error": qr.NewRenderer(failing),
		"no source":  qr.NewRenderer(nil),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := r.Render(context.Background(), testURL, c)
			require.NoError(t, err)
			assert.False(t, res.Fallback)
			assert.True(t, res.Warned(qr.WarnLogoUnavailable))
			for _, op := range res.Scene.Ops {
				assert.NotEqual(t, qr.OpImage, op.Kind)
			}
			assert.Equal(t, bare.Scene.Raster().Pix, res.Scene.Raster().Pix)
		})
	}
}

func TestRenderFrames(t *testing.T) {
	r := qr.NewRenderer(nil)
	for _, f := range []qr.Frame{qr.FrameSquare, qr.FrameRounded, qr.FrameDashed} {
		c := qr.Default()
		c.Frame = f
		res, err := r.Render(context.Background(), testURL, c)
		require.NoError(t, err)
		assert.Equal(t, c.Size+2*qr.FrameOffset, res.Scene.Width, "frame %s", f)
		assert.Equal(t, res.Scene.Width, res.Scene.Height)

		last := res.Scene.Ops[len(res.Scene.Ops)-1]
		assert.Equal(t, qr.OpStroke, last.Kind)
	}

	c := qr.Default()
	c.Frame = qr.FrameCircle
	res, err := r.Render(context.Background(), testURL, c)
	require.NoError(t, err)
	require.Greater(t, res.Scene.Width, c.Size+2*qr.FrameOffset)

	circle := res.Scene.Ops[len(res.Scene.Ops)-1]
	require.Equal(t, qr.PrimCircle, circle.Prim)
	assert.LessOrEqual(t, circle.R+circle.LineWidth/2, float64(res.Scene.Width)/2)

	text, err := decode(t, res.Scene.Raster())
	require.NoError(t, err)
	assert.Equal(t, testURL, text)
}

func TestRenderFallback(t *testing.T) {
	r := qr.NewRenderer(nil)

	t.Run("unknown pattern", func(t *testing.T) {
		c := qr.Default()
		c.Pattern = "stars"
		res, err := r.Render(context.Background(), testURL, c)
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		assert.True(t, res.Warned(qr.WarnFallback))
		assert.Equal(t, qr.PatternSquares, res.Customization.Pattern)
		for _, op := range res.Scene.Ops {
			assert.Equal(t, qr.PrimRect, op.Prim)
		}

		text, err := decode(t, res.Scene.Raster())
		require.NoError(t, err)
		assert.Equal(t, testURL, text)
	})

	t.Run("unknown level", func(t *testing.T) {
		c := qr.Default()
		c.ErrorCorrectionLevel = "X"
		res, err := r.Render(context.Background(), testURL, c)
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		assert.Equal(t, qr.LevelM, res.Matrix.Level)
	})

	t.Run("bad colors", func(t *testing.T) {
		c := qr.Default()
		c.Colors.Foreground = "not-a-color"
		res, err := r.Render(context.Background(), testURL, c)
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		assert.Equal(t, color.NRGBA{A: 255}, res.Scene.Ops[0].Color)
	})

	t.Run("size too small", func(t *testing.T) {
		c := qr.Default()
		c.Size = 10
		res, err := r.Render(context.Background(), testURL, c)
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		assert.GreaterOrEqual(t, res.Scene.Width, res.Matrix.Size+2*c.Margin)
	})
}

func TestRenderErrors(t *testing.T) {
	r := qr.NewRenderer(nil)

	_, err := r.Render(context.Background(), "", qr.Default())
	assert.ErrorIs(t, err, qr.ErrEmptyPayload)

	long := string(bytes.Repeat([]byte("a"), 3000))
	_, err = r.Render(context.Background(), long, qr.Default())
	assert.ErrorIs(t, err, qr.ErrPayloadTooLong)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Render(ctx, testURL, qr.Default())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderCancelledWhileLoadingLogo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocking := qr.LogoSourceFunc(func(ctx context.Context, _ string) (image.Image, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c := qr.Default()
	c.Logo = &qr.Logo{URL: "slow.png"}
	_, err := qr.NewRenderer(blocking).Render(ctx, testURL, c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderWarnings(t *testing.T) {
	r := qr.NewRenderer(solidLogo(color.Black))

	c := qr.Default()
	c.ErrorCorrectionLevel = qr.LevelM
	c.Pattern = qr.PatternDots
	c.Colors.Foreground = "#dddddd"
	c.Logo = &qr.Logo{URL: "logo.png", Size: 150}

	res, err := r.Render(context.Background(), testURL, c)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.True(t, res.Warned(qr.WarnLowLevel))
	assert.True(t, res.Warned(qr.WarnLogoCoverage))
	assert.True(t, res.Warned(qr.WarnLowContrast))
}

func TestRenderMarginZero(t *testing.T) {
	c := qr.Default()
	c.Margin = 0
	res, err := qr.NewRenderer(nil).Render(context.Background(), testURL, c)
	require.NoError(t, err)
	require.False(t, res.Fallback)

	// Symbols without a quiet zone are legal output but readers may reject them.
	if _, err := decode(t, res.Scene.Raster()); err != nil {
		t.Logf("margin 0 symbol did not decode: %v", err)
	}
}

func TestRenderMatrixFromImage(t *testing.T) {
	plain, err := qr.Plain(testURL, qr.Default())
	require.NoError(t, err)

	m, err := qr.MatrixFromImage(plain.Scene.Raster(), qr.LevelH)
	require.NoError(t, err)
	require.Equal(t, plain.Matrix.Size, m.Size)

	c := qr.Default()
	c.Pattern = qr.PatternRounded
	res, err := qr.NewRenderer(nil).RenderMatrix(context.Background(), m, c)
	require.NoError(t, err)

	text, err := decode(t, res.Scene.Raster())
	require.NoError(t, err)
	assert.Equal(t, testURL, text)
}
