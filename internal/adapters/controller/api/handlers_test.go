package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Badsnus/qr-studio/internal/domain/common/errorz"
	"github.com/Badsnus/qr-studio/internal/domain/entity"
	"github.com/Badsnus/qr-studio/internal/domain/service"
	"github.com/Badsnus/qr-studio/pkg/jwt"
	"github.com/Badsnus/qr-studio/pkg/logger/types"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQR struct {
	renderer *qr.Renderer
	codes    map[string]*entity.QRCode
}

func (f *fakeQR) Defaults() qr.Customization { return qr.Default() }

func (f *fakeQR) Render(ctx context.Context, payload string, c qr.Customization) (*qr.Result, error) {
	return f.renderer.Render(ctx, payload, c)
}

func (f *fakeQR) RenderStored(ctx context.Context, shortCode string) (*qr.Result, *entity.QRCode, error) {
	code, err := f.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, nil, err
	}
	res, err := f.renderer.Render(ctx, code.Link("https://qr.example.com"), code.Style())
	return res, code, err
}

func (f *fakeQR) Restyle(ctx context.Context, img image.Image, c qr.Customization) (*qr.Result, error) {
	m, err := qr.MatrixFromImage(img, qr.LevelM)
	if err != nil {
		return nil, err
	}
	return f.renderer.RenderMatrix(ctx, m, c)
}

func (f *fakeQR) Resolve(ctx context.Context, shortCode string) (*entity.QRCode, error) {
	code, err := f.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if !code.IsActive {
		return nil, errorz.ErrInactive
	}
	return code, nil
}

func (f *fakeQR) GetByOwner(_ context.Context, ownerID int64, _, _ int) ([]entity.QRCode, error) {
	var out []entity.QRCode
	for _, code := range f.codes {
		if code.OwnerID == ownerID {
			out = append(out, *code)
		}
	}
	return out, nil
}

func (f *fakeQR) Link(code *entity.QRCode) string {
	return code.Link("https://qr.example.com")
}

func (f *fakeQR) GetByShortCode(_ context.Context, shortCode string) (*entity.QRCode, error) {
	code, ok := f.codes[shortCode]
	if !ok {
		return nil, errorz.ErrNotFound
	}
	return code, nil
}

type fakeScans struct {
	mu   sync.Mutex
	seen []string
}

func (f *fakeScans) Record(_ context.Context, code *entity.QRCode, ip, userAgent string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, code.ShortCode+" "+ip+" "+userAgent)
	return true, nil
}

func (f *fakeScans) Summary(context.Context, string) (*entity.ScanSummary, error) {
	return &entity.ScanSummary{
		TotalScans: 3,
		TodayScans: 1,
		TopDevices: []entity.Bucket{{Name: "mobile", Count: 2}, {Name: "desktop", Count: 1}},
	}, nil
}

var tokens = jwt.NewManager("test-secret", time.Hour)

func newServer(t *testing.T) (*httptest.Server, *fakeScans) {
	t.Helper()
	renderer := qr.NewRenderer(nil)
	qrs := &fakeQR{
		renderer: renderer,
		codes: map[string]*entity.QRCode{
			"menu1234": {ID: "id-1", OwnerID: 42, ShortCode: "menu1234", Name: "Menu", DestinationURL: "https://example.com/menu", IsActive: true},
			"gone1234": {ID: "id-2", ShortCode: "gone1234", DestinationURL: "https://example.com/old"},
		},
	}
	scans := &fakeScans{}
	logger := types.Nop("test")
	h := NewHandler(qrs, scans, service.NewPreviewHub(renderer, time.Minute), tokens, logger)

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, scans
}

func noRedirect(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

func TestRedirect(t *testing.T) {
	srv, scans := newServer(t)
	client := &http.Client{CheckRedirect: noRedirect}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/qr/menu1234", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/menu", resp.Header.Get("Location"))
	assert.Equal(t, []string{"menu1234 203.0.113.7 test-agent"}, scans.seen)

	for path, status := range map[string]int{"/qr/gone1234": http.StatusGone, "/qr/missing1": http.StatusNotFound} {
		resp, err := client.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, status, resp.StatusCode, path)
	}
	assert.Len(t, scans.seen, 1)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRender(t *testing.T) {
	srv, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/api/render", RenderRequest{Payload: "https://example.com", Preset: "colorful", Format: "svg"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "qr-render.svg")

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "<svg"))

	c := qr.Default()
	c.ErrorCorrectionLevel = qr.LevelL
	c.Pattern = qr.PatternDots
	resp = postJSON(t, srv.URL+"/api/render", RenderRequest{Payload: "https://example.com", Customization: &c})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("X-QR-Warnings"), string(qr.WarnLowLevel))

	resp = postJSON(t, srv.URL+"/api/render", RenderRequest{Payload: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/render", RenderRequest{Payload: "x", Format: "gif"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/render", RenderRequest{Payload: "x", Preset: "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRestyle(t *testing.T) {
	srv, _ := newServer(t)

	plain, err := qr.Plain("https://example.com/restyle", qr.Default())
	require.NoError(t, err)
	file, err := plain.File("plain", qr.FormatPNG)
	require.NoError(t, err)

	resp := postJSON(t, srv.URL+"/api/restyle", RenderRequest{Image: file.DataURL(), Preset: "modern"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("X-QR-Fallback"))

	resp = postJSON(t, srv.URL+"/api/restyle", RenderRequest{Image: "not a data url"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreview(t *testing.T) {
	srv, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/api/preview/s1", RenderRequest{Payload: "https://example.com", Preset: "modern"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pv PreviewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pv))
	assert.Equal(t, uint64(1), pv.Seq)
	assert.True(t, strings.HasPrefix(pv.Image, "data:image/png;base64,"))
	assert.False(t, pv.Fallback)

	img, err := qr.DecodeDataURL(pv.Image)
	require.NoError(t, err)
	// modern has a rounded frame around the 300px symbol
	assert.Equal(t, 300+2*qr.FrameOffset, img.Bounds().Dx())

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/preview/s1", nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	resp = postJSON(t, srv.URL+"/api/preview/s1", RenderRequest{Payload: "https://example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pv))
	assert.Equal(t, uint64(1), pv.Seq)
}

func TestCodeImage(t *testing.T) {
	srv, _ := newServer(t)

	for format, mime := range map[string]string{"png": "image/png", "jpg": "image/jpeg", "svg": "image/svg+xml", "pdf": "application/pdf"} {
		resp, err := http.Get(srv.URL + "/api/codes/menu1234/image." + format)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, format)
		assert.Equal(t, mime, resp.Header.Get("Content-Type"), format)
	}

	resp, err := http.Get(srv.URL + "/api/codes/missing1/image.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/codes/menu1234/image.gif")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func authGet(t *testing.T, url string, ownerID int64) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if ownerID != 0 {
		token, err := tokens.GenerateToken(ownerID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCodeStats(t *testing.T) {
	srv, _ := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, authGet(t, srv.URL+"/api/codes/menu1234/stats", 0).StatusCode)
	assert.Equal(t, http.StatusNotFound, authGet(t, srv.URL+"/api/codes/menu1234/stats", 7).StatusCode)

	resp := authGet(t, srv.URL+"/api/codes/menu1234/stats", 42)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, "Menu", stats.Name)
	assert.Equal(t, int64(3), stats.TotalScans)
	assert.Equal(t, map[string]int64{"mobile": 2, "desktop": 1}, stats.TopDevices)
	assert.Nil(t, stats.LastScan)
}

func TestCodes(t *testing.T) {
	srv, _ := newServer(t)

	resp := authGet(t, srv.URL+"/api/codes", 42)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var codes []CodeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&codes))
	require.Len(t, codes, 1)
	assert.Equal(t, "menu1234", codes[0].ShortCode)
	assert.Equal(t, "https://qr.example.com/qr/menu1234", codes[0].Link)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/codes", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer forged")
	bad, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
}

func TestPreviewSocket(t *testing.T) {
	srv, _ := newServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/preview/s2/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(30*time.Second)))

	require.NoError(t, conn.WriteJSON(RenderRequest{Payload: "https://example.com/a", Preset: "colorful"}))
	var pv PreviewResponse
	require.NoError(t, conn.ReadJSON(&pv))
	assert.Equal(t, uint64(1), pv.Seq)
	assert.True(t, strings.HasPrefix(pv.Image, "data:image/png;base64,"))

	require.NoError(t, conn.WriteJSON(RenderRequest{Payload: "https://example.com/b"}))
	require.NoError(t, conn.ReadJSON(&pv))
	assert.Equal(t, uint64(2), pv.Seq)

	require.NoError(t, conn.WriteJSON(RenderRequest{Payload: "x", Preset: "nope"}))
	var perr PreviewError
	require.NoError(t, conn.ReadJSON(&perr))
	assert.Contains(t, perr.Error, "bad request")
}

func TestPresets(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/api/presets")
	require.NoError(t, err)
	defer resp.Body.Close()

	var presets map[string]qr.Customization
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&presets))
	assert.Contains(t, presets, "colorful")
}
