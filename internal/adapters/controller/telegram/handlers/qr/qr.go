package qr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/Badsnus/qr-studio/cmd/bot"
	"github.com/Badsnus/qr-studio/internal/adapters/controller/telegram/handlers/middlewares"
	"github.com/Badsnus/qr-studio/internal/adapters/database/postgres"
	"github.com/Badsnus/qr-studio/internal/domain/common/errorz"
	"github.com/Badsnus/qr-studio/internal/domain/entity"
	"github.com/Badsnus/qr-studio/internal/domain/service"
	"github.com/Badsnus/qr-studio/pkg/logger/types"
	qrcode "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/Badsnus/qr-studio/pkg/smtp"
	tele "gopkg.in/telebot.v3"
	"html"
	"image"
	"net/mail"
	"sort"
	"strings"
)

const codesOnPage = 20

type qrService interface {
	Defaults() qrcode.Customization
	Create(ctx context.Context, ownerID int64, name, destination string, c *qrcode.Customization) (*entity.QRCode, error)
	Render(ctx context.Context, payload string, c qrcode.Customization) (*qrcode.Result, error)
	RenderStored(ctx context.Context, shortCode string) (*qrcode.Result, *entity.QRCode, error)
	Restyle(ctx context.Context, img image.Image, c qrcode.Customization) (*qrcode.Result, error)
	ApplyPreset(ctx context.Context, shortCode, preset string) (*entity.QRCode, error)
	Export(ctx context.Context, shortCode string, f qrcode.Format) (*qrcode.File, string, error)
	GetByShortCode(ctx context.Context, shortCode string) (*entity.QRCode, error)
	GetByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]entity.QRCode, error)
	SetActive(ctx context.Context, shortCode string, active bool) (*entity.QRCode, error)
	Delete(ctx context.Context, shortCode string) error
}

type scanService interface {
	Summary(ctx context.Context, qrCodeID string) (*entity.ScanSummary, error)
}

type tokenIssuer interface {
	GenerateToken(ownerID int64) (string, error)
}

type mailer interface {
	SendQRCode(to, name, link string, file *qrcode.File) error
}

type Handler struct {
	logger  *types.Logger
	baseURL string

	qrService   qrService
	scanService scanService
	tokens      tokenIssuer
	mailer      mailer
}

func New(b *bot.Bot) *Handler {
	qrStorage := postgres.NewQRCodeStorage(b.DB)
	scanStorage := postgres.NewScanStorage(b.DB)

	return &Handler{
		logger:  b.Logger,
		baseURL: b.QR.BaseURL,
		qrService: service.NewQrService(
			qrStorage,
			b.Renderer,
			b.Exports,
			b.QR.BaseURL,
			b.QR.Defaults,
			b.Logger,
		),
		scanService: service.NewScanService(scanStorage, qrStorage, b.Redis.Scans, b.QR.ScanWindow, b.Logger),
		tokens:      b.Tokens,
		mailer:      smtp.NewClient(b.SMTPDialer),
	}
}

func (h Handler) start(c tele.Context) error {
	h.logger.Infof("(user: %d) start", c.Sender().ID)

	presets := make([]string, 0, len(qrcode.Presets))
	for name := range qrcode.Presets {
		presets = append(presets, name)
	}
	sort.Strings(presets)

	return c.Send(fmt.Sprintf(
		"<b>QR Studio</b>\n\n"+
			"/qr &lt;text&gt; [preset] renders any text\n"+
			"/new &lt;name&gt; &lt;url&gt; [preset] creates a tracked link\n"+
			"/list shows your codes\n"+
			"/code &lt;id&gt; [png|jpg|svg|pdf] downloads one\n"+
			"/style &lt;id&gt; &lt;preset&gt; changes its look\n"+
			"/stats &lt;id&gt; shows scans\n"+
			"/mail &lt;id&gt; &lt;email&gt; [format] sends it by e-mail\n"+
			"/token gives a token for the HTTP API\n\n"+
			"Send a plain QR code image as a file with a preset name as caption to restyle it.\n\n"+
			"Presets: %s",
		strings.Join(presets, ", "),
	))
}

func (h Handler) render(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("Usage: /qr &lt;text&gt; [preset]")
	}
	h.logger.Infof("(user: %d) render request", c.Sender().ID)

	style := h.qrService.Defaults()
	payload := strings.Join(args, " ")
	if len(args) > 1 {
		if preset, ok := qrcode.Preset(args[len(args)-1]); ok {
			style = preset
			payload = strings.Join(args[:len(args)-1], " ")
		}
	}

	res, err := h.qrService.Render(context.Background(), payload, style)
	if err != nil {
		return h.fail(c, "render", err)
	}
	return h.sendPhoto(c, res, warningsText(res))
}

func (h Handler) create(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Send("Usage: /new &lt;name&gt; &lt;url&gt; [preset]")
	}
	h.logger.Infof("(user: %d) create qr code", c.Sender().ID)

	var style *qrcode.Customization
	if len(args) > 2 {
		preset, ok := qrcode.Preset(args[2])
		if !ok {
			return c.Send(fmt.Sprintf("Unknown preset %q", html.EscapeString(args[2])))
		}
		style = &preset
	}

	code, err := h.qrService.Create(context.Background(), c.Sender().ID, args[0], args[1], style)
	if err != nil {
		return h.fail(c, "create", err)
	}

	res, _, err := h.qrService.RenderStored(context.Background(), code.ShortCode)
	if err != nil {
		return h.fail(c, "render", err)
	}
	return h.sendPhoto(c, res, fmt.Sprintf(
		"<b>%s</b>\nID: <code>%s</code>\n%s → %s%s",
		html.EscapeString(code.Name),
		code.ShortCode,
		code.Link(h.baseURL),
		html.EscapeString(code.DestinationURL),
		warningsText(res),
	))
}

func (h Handler) list(c tele.Context) error {
	codes, err := h.qrService.GetByOwner(context.Background(), c.Sender().ID, 0, codesOnPage)
	if err != nil {
		return h.fail(c, "list", err)
	}
	if len(codes) == 0 {
		return c.Send("You have no QR codes yet. Create one with /new")
	}

	var text strings.Builder
	text.WriteString("<b>Your QR codes</b>\n")
	for _, code := range codes {
		status := "active"
		if !code.IsActive {
			status = "paused"
		}
		text.WriteString(fmt.Sprintf("\n<code>%s</code> %s, %d scans, %s",
			code.ShortCode, html.EscapeString(code.Name), code.ScanCount, status))
	}
	return c.Send(text.String())
}

func (h Handler) download(c tele.Context) error {
	code := middlewares.Code(c)
	format := qrcode.FormatPNG
	if args := c.Args(); len(args) > 1 {
		f, err := qrcode.ParseFormat(args[1])
		if err != nil {
			return c.Send("Formats: png, jpg, svg, pdf")
		}
		format = f
	}
	h.logger.Infof("(user: %d) export %s as %s", c.Sender().ID, code.ShortCode, format)

	file, _, err := h.qrService.Export(context.Background(), code.ShortCode, format)
	if err != nil {
		return h.fail(c, "export", err)
	}
	return c.Send(&tele.Document{
		File:     tele.FromReader(bytes.NewReader(file.Data)),
		FileName: file.Name,
		MIME:     format.MIME(),
		Caption:  html.EscapeString(code.Name),
	})
}

func (h Handler) style(c tele.Context) error {
	code := middlewares.Code(c)
	args := c.Args()
	if len(args) < 2 {
		return c.Send("Usage: /style &lt;id&gt; &lt;preset&gt;")
	}

	updated, err := h.qrService.ApplyPreset(context.Background(), code.ShortCode, args[1])
	if errors.Is(err, qrcode.ErrInvalidCustomization) {
		return c.Send(fmt.Sprintf("Unknown preset %q", html.EscapeString(args[1])))
	}
	if err != nil {
		return h.fail(c, "style", err)
	}

	res, _, err := h.qrService.RenderStored(context.Background(), updated.ShortCode)
	if err != nil {
		return h.fail(c, "render", err)
	}
	return h.sendPhoto(c, res, "Style updated"+warningsText(res))
}

func (h Handler) stats(c tele.Context) error {
	code := middlewares.Code(c)
	summary, err := h.scanService.Summary(context.Background(), code.ID)
	if err != nil {
		return h.fail(c, "stats", err)
	}
	return c.Send(FormatSummary(code, summary))
}

func (h Handler) sendMail(c tele.Context) error {
	code := middlewares.Code(c)
	args := c.Args()
	if len(args) < 2 {
		return c.Send("Usage: /mail &lt;id&gt; &lt;email&gt; [format]")
	}
	to, err := mail.ParseAddress(args[1])
	if err != nil {
		return c.Send("Invalid e-mail address")
	}
	format := qrcode.FormatPNG
	if len(args) > 2 {
		if format, err = qrcode.ParseFormat(args[2]); err != nil {
			return c.Send("Formats: png, jpg, svg, pdf")
		}
	}

	file, _, err := h.qrService.Export(context.Background(), code.ShortCode, format)
	if err != nil {
		return h.fail(c, "export", err)
	}
	if err = h.mailer.SendQRCode(to.Address, code.Name, code.Link(h.baseURL), file); err != nil {
		return h.fail(c, "mail", err)
	}
	return c.Send(fmt.Sprintf("Sent to %s", html.EscapeString(to.Address)))
}

func (h Handler) setActive(active bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		code, err := h.qrService.SetActive(context.Background(), middlewares.Code(c).ShortCode, active)
		if err != nil {
			return h.fail(c, "update", err)
		}
		if code.IsActive {
			return c.Send(fmt.Sprintf("<code>%s</code> redirects again", code.ShortCode))
		}
		return c.Send(fmt.Sprintf("<code>%s</code> is paused", code.ShortCode))
	}
}

func (h Handler) remove(c tele.Context) error {
	code := middlewares.Code(c)
	if err := h.qrService.Delete(context.Background(), code.ShortCode); err != nil {
		return h.fail(c, "delete", err)
	}
	return c.Send(fmt.Sprintf("<code>%s</code> deleted", code.ShortCode))
}

// restyle redraws a plain QR code sent as a document. The caption names the
// preset.
func (h Handler) restyle(c tele.Context) error {
	doc := c.Message().Document
	if doc == nil || !strings.HasPrefix(doc.MIME, "image/") {
		return nil
	}
	style := h.qrService.Defaults()
	if caption := strings.TrimSpace(c.Message().Caption); caption != "" {
		preset, ok := qrcode.Preset(caption)
		if !ok {
			return c.Send(fmt.Sprintf("Unknown preset %q", html.EscapeString(caption)))
		}
		style = preset
	}
	h.logger.Infof("(user: %d) restyle upload", c.Sender().ID)

	reader, err := c.Bot().File(&doc.File)
	if err != nil {
		return h.fail(c, "download", err)
	}
	defer reader.Close()

	img, err := qrcode.DecodeLogo(reader)
	if err != nil {
		return c.Send("Could not read the image")
	}
	res, err := h.qrService.Restyle(context.Background(), img, style)
	if errors.Is(err, qrcode.ErrNoSymbol) {
		return c.Send("No QR code found in the image")
	}
	if err != nil {
		return h.fail(c, "restyle", err)
	}
	return h.sendPhoto(c, res, warningsText(res))
}

func (h Handler) token(c tele.Context) error {
	h.logger.Infof("(user: %d) api token requested", c.Sender().ID)
	token, err := h.tokens.GenerateToken(c.Sender().ID)
	if err != nil {
		return h.fail(c, "token", err)
	}
	return c.Send(fmt.Sprintf("Use it as <code>Authorization: Bearer &lt;token&gt;</code>\n\n<code>%s</code>", token))
}

func (h Handler) sendPhoto(c tele.Context, res *qrcode.Result, caption string) error {
	data, err := res.Bytes(qrcode.FormatPNG)
	if err != nil {
		return h.fail(c, "encode", err)
	}
	return c.Send(&tele.Photo{
		File:    tele.FromReader(bytes.NewReader(data)),
		Caption: caption,
	})
}

func (h Handler) fail(c tele.Context, action string, err error) error {
	switch {
	case errors.Is(err, errorz.ErrInvalidURL):
		return c.Send("The destination must be an http or https URL")
	case errors.Is(err, errorz.ErrNotFound):
		return c.Send("QR code not found")
	case errors.Is(err, qrcode.ErrEmptyPayload), errors.Is(err, qrcode.ErrPayloadTooLong):
		return c.Send(html.EscapeString(err.Error()))
	}
	h.logger.Errorf("(user: %d) %s failed: %v", c.Sender().ID, action, err)
	return c.Send(fmt.Sprintf("Technical issues: %s", html.EscapeString(err.Error())))
}

func warningsText(res *qrcode.Result) string {
	if len(res.Warnings) == 0 {
		return ""
	}
	var text strings.Builder
	text.WriteString("\n\n⚠️")
	for _, w := range res.Warnings {
		text.WriteString("\n" + html.EscapeString(w.Message))
	}
	return text.String()
}

// FormatSummary renders scan statistics as an HTML message.
func FormatSummary(code *entity.QRCode, s *entity.ScanSummary) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("<b>%s</b> <code>%s</code>\n\n", html.EscapeString(code.Name), code.ShortCode))
	text.WriteString(fmt.Sprintf("Total: %d\nToday: %d\nLast 7 days: %d\nLast 30 days: %d\n",
		s.TotalScans, s.TodayScans, s.WeekScans, s.MonthScans))
	if s.LastScan != nil {
		text.WriteString(fmt.Sprintf("Last scan: %s\n", s.LastScan.Format("2006-01-02 15:04")))
	}
	writeBuckets(&text, "Devices", s.TopDevices)
	writeBuckets(&text, "Browsers", s.TopBrowsers)
	return text.String()
}

func writeBuckets(text *strings.Builder, title string, buckets []entity.Bucket) {
	if len(buckets) == 0 {
		return
	}
	text.WriteString("\n<b>" + title + "</b>\n")
	for _, b := range buckets {
		text.WriteString(fmt.Sprintf("%s: %d\n", html.EscapeString(b.Name), b.Count))
	}
}
