package service

import (
	"context"
	"fmt"
	"github.com/Badsnus/qr-studio/internal/domain/common/errorz"
	"github.com/Badsnus/qr-studio/internal/domain/entity"
	"github.com/Badsnus/qr-studio/pkg/logger/types"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/google/uuid"
	"image"
	"net/url"
	"regexp"
	"strings"
)

type QRCodeStorage interface {
	Create(ctx context.Context, code *entity.QRCode) (*entity.QRCode, error)
	Get(ctx context.Context, id string) (*entity.QRCode, error)
	GetByShortCode(ctx context.Context, shortCode string) (*entity.QRCode, error)
	GetByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]entity.QRCode, error)
	Update(ctx context.Context, code *entity.QRCode) (*entity.QRCode, error)
	Delete(ctx context.Context, id string) error
}

type qrRenderer interface {
	Render(ctx context.Context, payload string, c qr.Customization) (*qr.Result, error)
	RenderMatrix(ctx context.Context, m *qr.Matrix, c qr.Customization) (*qr.Result, error)
}

type qrFiles interface {
	Save(file *qr.File) (string, error)
	Delete(id string) error
}

const shortCodeLength = 8

var shortCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{4,32}$`)

type QrService struct {
	storage  QRCodeStorage
	renderer qrRenderer
	files    qrFiles
	baseURL  string
	defaults qr.Customization
	logger   *types.Logger
}

func NewQrService(
	storage QRCodeStorage,
	renderer qrRenderer,
	files qrFiles,
	baseURL string,
	defaults qr.Customization,
	logger *types.Logger,
) *QrService {
	return &QrService{
		storage:  storage,
		renderer: renderer,
		files:    files,
		baseURL:  strings.TrimRight(baseURL, "/"),
		defaults: defaults.Normalize(),
		logger:   logger,
	}
}

// Defaults returns a copy of the customization used when none is given.
func (s *QrService) Defaults() qr.Customization {
	return s.defaults.Clone()
}

// Link returns the short link encoded in code.
func (s *QrService) Link(code *entity.QRCode) string {
	return code.Link(s.baseURL)
}

// Create stores a new tracked QR code pointing at destination.
func (s *QrService) Create(ctx context.Context, ownerID int64, name, destination string, c *qr.Customization) (*entity.QRCode, error) {
	if err := ValidateURL(destination); err != nil {
		return nil, err
	}
	style := s.Defaults()
	if c != nil {
		style = c.Normalize()
	}
	if err := style.Validate(0); err != nil {
		return nil, err
	}
	if name == "" {
		name = destination
	}

	code := &entity.QRCode{
		OwnerID:        ownerID,
		Name:           name,
		ShortCode:      NewShortCode(),
		DestinationURL: destination,
		IsActive:       true,
		Customization:  &style,
	}
	return s.storage.Create(ctx, code)
}

// Render draws payload with c. Styling problems never fail the call; they
// come back as warnings on the result and are logged.
func (s *QrService) Render(ctx context.Context, payload string, c qr.Customization) (*qr.Result, error) {
	res, err := s.renderer.Render(ctx, payload, c)
	if err != nil {
		return nil, err
	}
	s.logWarnings(payload, res)
	return res, nil
}

// RenderStored draws the tracked link of a stored QR code with its saved style.
func (s *QrService) RenderStored(ctx context.Context, shortCode string) (*qr.Result, *entity.QRCode, error) {
	code, err := s.storage.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.Render(ctx, s.Link(code), code.Style())
	if err != nil {
		return nil, nil, err
	}
	return res, code, nil
}

// SaveCustomization replaces the style of a stored QR code. Unlike rendering,
// saving rejects descriptors that do not validate.
func (s *QrService) SaveCustomization(ctx context.Context, shortCode string, c qr.Customization) (*entity.QRCode, error) {
	code, err := s.storage.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	c = c.Normalize()
	if err = c.Validate(0); err != nil {
		return nil, err
	}
	code.Customization = &c
	return s.storage.Update(ctx, code)
}

// ApplyPreset saves a named preset as the style of a stored QR code, keeping
// its logo.
func (s *QrService) ApplyPreset(ctx context.Context, shortCode, preset string) (*entity.QRCode, error) {
	c, ok := qr.Preset(preset)
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q", qr.ErrInvalidCustomization, preset)
	}
	code, err := s.storage.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if code.Customization != nil && code.Customization.Logo != nil {
		logo := *code.Customization.Logo
		c.Logo = &logo
	}
	return s.SaveCustomization(ctx, shortCode, c)
}

// Restyle redraws a plain QR code image with c, keeping its modules.
func (s *QrService) Restyle(ctx context.Context, img image.Image, c qr.Customization) (*qr.Result, error) {
	c = c.Normalize()
	level, err := qr.ParseLevel(string(c.ErrorCorrectionLevel))
	if err != nil {
		level = qr.LevelM
	}
	m, err := qr.MatrixFromImage(img, level)
	if err != nil {
		return nil, err
	}
	res, err := s.renderer.RenderMatrix(ctx, m, c)
	if err != nil {
		return nil, err
	}
	s.logWarnings("restyle", res)
	return res, nil
}

// Export renders a stored QR code in format f and writes it to the output
// directory. It returns the file and its path.
func (s *QrService) Export(ctx context.Context, shortCode string, f qr.Format) (*qr.File, string, error) {
	res, code, err := s.RenderStored(ctx, shortCode)
	if err != nil {
		return nil, "", err
	}
	file, err := res.File(code.ShortCode, f)
	if err != nil {
		return nil, "", err
	}
	path, err := s.files.Save(file)
	if err != nil {
		return nil, "", err
	}
	s.logger.Infof("exported %s to %s", code.ShortCode, path)
	return file, path, nil
}

// Resolve returns the active QR code behind shortCode.
func (s *QrService) Resolve(ctx context.Context, shortCode string) (*entity.QRCode, error) {
	if !shortCodePattern.MatchString(shortCode) {
		return nil, errorz.ErrInvalidShortCode
	}
	code, err := s.storage.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if !code.IsActive {
		return nil, errorz.ErrInactive
	}
	return code, nil
}

func (s *QrService) GetByShortCode(ctx context.Context, shortCode string) (*entity.QRCode, error) {
	return s.storage.GetByShortCode(ctx, shortCode)
}

func (s *QrService) GetByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]entity.QRCode, error) {
	return s.storage.GetByOwner(ctx, ownerID, offset, limit)
}

func (s *QrService) SetActive(ctx context.Context, shortCode string, active bool) (*entity.QRCode, error) {
	code, err := s.storage.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	code.IsActive = active
	return s.storage.Update(ctx, code)
}

func (s *QrService) Delete(ctx context.Context, shortCode string) error {
	code, err := s.storage.GetByShortCode(ctx, shortCode)
	if err != nil {
		return err
	}
	if err = s.storage.Delete(ctx, code.ID); err != nil {
		return err
	}
	if err = s.files.Delete(code.ShortCode); err != nil {
		s.logger.Warnf("failed to delete exports of %s: %v", code.ShortCode, err)
	}
	return nil
}

func (s *QrService) logWarnings(payload string, res *qr.Result) {
	for _, w := range res.Warnings {
		if w.Code == qr.WarnFallback {
			s.logger.Warnf("fallback render for %s: %s", payload, w)
			continue
		}
		s.logger.Debugf("render warning for %s: %s", payload, w)
	}
}

// NewShortCode returns a random short code.
func NewShortCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:shortCodeLength]
}

// ValidateURL accepts absolute http(s) URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errorz.ErrInvalidURL, raw)
	}
	return nil
}
