package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/Badsnus/qr-studio/internal/domain/common/errorz"
	"github.com/Badsnus/qr-studio/internal/domain/entity"
	"github.com/Badsnus/qr-studio/internal/domain/service"
	"github.com/Badsnus/qr-studio/pkg/logger/types"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/gorilla/mux"
	"image"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxBodyBytes = 4 << 20
	maxPage      = 100
)

type qrService interface {
	Defaults() qr.Customization
	Render(ctx context.Context, payload string, c qr.Customization) (*qr.Result, error)
	RenderStored(ctx context.Context, shortCode string) (*qr.Result, *entity.QRCode, error)
	Restyle(ctx context.Context, img image.Image, c qr.Customization) (*qr.Result, error)
	Resolve(ctx context.Context, shortCode string) (*entity.QRCode, error)
	GetByShortCode(ctx context.Context, shortCode string) (*entity.QRCode, error)
	GetByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]entity.QRCode, error)
	Link(code *entity.QRCode) string
}

type scanService interface {
	Record(ctx context.Context, code *entity.QRCode, ip, userAgent string) (bool, error)
	Summary(ctx context.Context, qrCodeID string) (*entity.ScanSummary, error)
}

type previewHub interface {
	Session(id string) *service.Previewer
	Forget(id string)
}

type Handler struct {
	qrService   qrService
	scanService scanService
	previews    previewHub
	tokens      tokenValidator
	validator   *Validator
	logger      *types.Logger
}

func NewHandler(qrService qrService, scanService scanService, previews previewHub, tokens tokenValidator, logger *types.Logger) *Handler {
	return &Handler{
		qrService:   qrService,
		scanService: scanService,
		previews:    previews,
		tokens:      tokens,
		validator:   NewValidator(),
		logger:      logger,
	}
}

// RenderRequest is the body of the render, restyle and preview endpoints.
// Image is only read by restyle and holds a data URL of a plain QR code.
type RenderRequest struct {
	Payload       string            `json:"payload" validate:"required_without=Image,max=4096"`
	Image         string            `json:"image,omitempty" validate:"omitempty,startswith=data:"`
	Preset        string            `json:"preset,omitempty" validate:"omitempty,preset"`
	Customization *qr.Customization `json:"customization,omitempty"`
	Format        string            `json:"format,omitempty" validate:"omitempty,format"`
}

type CodeResponse struct {
	ShortCode   string    `json:"shortCode"`
	Name        string    `json:"name"`
	Link        string    `json:"link"`
	Destination string    `json:"destination"`
	Active      bool      `json:"active"`
	ScanCount   int64     `json:"scanCount"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PreviewResponse struct {
	Seq      uint64   `json:"seq"`
	Image    string   `json:"image"`
	Fallback bool     `json:"fallback"`
	Warnings []string `json:"warnings"`
}

type StatsResponse struct {
	ShortCode   string           `json:"shortCode"`
	Name        string           `json:"name"`
	Destination string           `json:"destination"`
	Active      bool             `json:"active"`
	TotalScans  int64            `json:"totalScans"`
	TodayScans  int64            `json:"todayScans"`
	WeekScans   int64            `json:"weekScans"`
	MonthScans  int64            `json:"monthScans"`
	TopDevices  map[string]int64 `json:"topDevices"`
	TopBrowsers map[string]int64 `json:"topBrowsers"`
	LastScan    *time.Time       `json:"lastScan,omitempty"`
}

// Redirect resolves a short link, records the scan and redirects to the
// destination.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code, err := h.qrService.Resolve(r.Context(), mux.Vars(r)["shortCode"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	if _, err = h.scanService.Record(r.Context(), code, clientIP(r), r.UserAgent()); err != nil {
		h.logger.Errorf("failed to record scan of %s: %v", code.ShortCode, err)
	}
	http.Redirect(w, r, code.DestinationURL, http.StatusFound)
}

func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, qr.Presets)
}

// Render draws an arbitrary payload and answers with the encoded image.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	req, c, format, err := h.readRequest(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.qrService.Render(r.Context(), req.Payload, c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, res, "render", format)
}

// Restyle redraws an uploaded plain QR code with a new customization.
func (h *Handler) Restyle(w http.ResponseWriter, r *http.Request) {
	req, c, format, err := h.readRequest(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	img, err := qr.DecodeDataURL(req.Image)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	res, err := h.qrService.Restyle(r.Context(), img, c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, res, "restyle", format)
}

// Preview renders for an editing session. A request overtaken by a newer one
// from the same session answers 409 and never carries an image.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	req, c, _, err := h.readRequest(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	pv := <-h.previews.Session(mux.Vars(r)["session"]).Request(r.Context(), req.Payload, c)
	switch {
	case pv.Superseded:
		http.Error(w, "superseded by a newer preview", http.StatusConflict)
		return
	case pv.Err != nil:
		h.writeError(w, pv.Err)
		return
	}

	resp, err := previewResponse(pv)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ForgetPreview(w http.ResponseWriter, r *http.Request) {
	h.previews.Forget(mux.Vars(r)["session"])
	w.WriteHeader(http.StatusNoContent)
}

// CodeImage renders a stored QR code in the format named by the path.
func (h *Handler) CodeImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	format, err := qr.ParseFormat(vars["format"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, code, err := h.qrService.RenderStored(r.Context(), vars["shortCode"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResult(w, res, code.ShortCode, format)
}

// Codes lists the QR codes of the token owner.
func (h *Handler) Codes(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := ownerFrom(r.Context())
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > maxPage {
		limit = maxPage
	}

	codes, err := h.qrService.GetByOwner(r.Context(), ownerID, max(offset, 0), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := make([]CodeResponse, len(codes))
	for i, code := range codes {
		resp[i] = CodeResponse{
			ShortCode:   code.ShortCode,
			Name:        code.Name,
			Link:        h.qrService.Link(&code),
			Destination: code.DestinationURL,
			Active:      code.IsActive,
			ScanCount:   code.ScanCount,
			Tags:        code.Tags,
			CreatedAt:   code.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CodeStats answers scan statistics to the owner of the QR code only.
func (h *Handler) CodeStats(w http.ResponseWriter, r *http.Request) {
	code, err := h.qrService.GetByShortCode(r.Context(), mux.Vars(r)["shortCode"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if ownerID, ok := ownerFrom(r.Context()); !ok || ownerID != code.OwnerID {
		h.writeError(w, errorz.ErrNotFound)
		return
	}
	summary, err := h.scanService.Summary(r.Context(), code.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		ShortCode:   code.ShortCode,
		Name:        code.Name,
		Destination: code.DestinationURL,
		Active:      code.IsActive,
		TotalScans:  summary.TotalScans,
		TodayScans:  summary.TodayScans,
		WeekScans:   summary.WeekScans,
		MonthScans:  summary.MonthScans,
		TopDevices:  buckets(summary.TopDevices),
		TopBrowsers: buckets(summary.TopBrowsers),
		LastScan:    summary.LastScan,
	})
}

func (h *Handler) readRequest(w http.ResponseWriter, r *http.Request) (*RenderRequest, qr.Customization, qr.Format, error) {
	var req RenderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return nil, qr.Customization{}, "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	c, format, err := h.customization(&req)
	if err != nil {
		return nil, qr.Customization{}, "", err
	}
	return &req, c, format, nil
}

// customization validates req and resolves the style it asks for: an explicit
// customization wins over a preset, which wins over the defaults.
func (h *Handler) customization(req *RenderRequest) (qr.Customization, qr.Format, error) {
	if err := h.validator.Struct(req); err != nil {
		return qr.Customization{}, "", fmt.Errorf("%w: %v", errBadRequest, err)
	}

	c := h.qrService.Defaults()
	if req.Preset != "" {
		c, _ = qr.Preset(req.Preset)
	}
	if req.Customization != nil {
		c = *req.Customization
	}

	format := qr.FormatPNG
	if req.Format != "" {
		format, _ = qr.ParseFormat(req.Format)
	}
	return c, format, nil
}

func (h *Handler) writeResult(w http.ResponseWriter, res *qr.Result, id string, format qr.Format) {
	file, err := res.File(id, format)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.MIME())
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Name))
	if res.Fallback {
		w.Header().Set("X-QR-Fallback", "true")
	}
	if len(res.Warnings) > 0 {
		codes := make([]string, len(res.Warnings))
		for i, warning := range res.Warnings {
			codes[i] = string(warning.Code)
		}
		w.Header().Set("X-QR-Warnings", strings.Join(codes, ","))
	}
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(file.Data); err != nil {
		h.logger.Errorf("failed to write %s: %v", file.Name, err)
	}
}

var errBadRequest = errors.New("bad request")

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errorz.ErrNotFound), errors.Is(err, errorz.ErrInvalidShortCode):
		http.Error(w, "qr code not found", http.StatusNotFound)
	case errors.Is(err, errorz.ErrInactive):
		http.Error(w, "qr code is inactive", http.StatusGone)
	case errors.Is(err, errBadRequest),
		errors.Is(err, qr.ErrUnknownFormat),
		errors.Is(err, qr.ErrInvalidDataURL),
		errors.Is(err, qr.ErrEmptyPayload),
		errors.Is(err, qr.ErrPayloadTooLong),
		errors.Is(err, qr.ErrNoSymbol):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request canceled", http.StatusServiceUnavailable)
	default:
		h.logger.Errorf("request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func warnings(res *qr.Result) []string {
	out := make([]string, len(res.Warnings))
	for i, w := range res.Warnings {
		out[i] = w.String()
	}
	return out
}

func buckets(in []entity.Bucket) map[string]int64 {
	out := make(map[string]int64, len(in))
	for _, b := range in {
		out[b.Name] = b.Count
	}
	return out
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
