package service

import (
	"context"
	"github.com/Badsnus/qr-studio/internal/domain/entity"
	"github.com/Badsnus/qr-studio/internal/domain/utils/useragent"
	"github.com/Badsnus/qr-studio/pkg/logger/types"
	"time"
)

type ScanStorage interface {
	Create(ctx context.Context, scan *entity.Scan) error
	CountSince(ctx context.Context, qrCodeID string, since time.Time) (int64, error)
	Top(ctx context.Context, qrCodeID, column string, limit int) ([]entity.Bucket, error)
	Last(ctx context.Context, qrCodeID string) (*entity.Scan, error)
}

type scanCounter interface {
	IncrementScans(ctx context.Context, id string) error
}

type scanDeduper interface {
	Seen(ctx context.Context, qrCodeID, client string, window time.Duration) (bool, error)
}

const topBuckets = 5

type ScanService struct {
	storage ScanStorage
	counter scanCounter
	deduper scanDeduper
	window  time.Duration
	now     func() time.Time
	logger  *types.Logger
}

func NewScanService(storage ScanStorage, counter scanCounter, deduper scanDeduper, window time.Duration, logger *types.Logger) *ScanService {
	return &ScanService{
		storage: storage,
		counter: counter,
		deduper: deduper,
		window:  window,
		now:     time.Now,
		logger:  logger,
	}
}

// Record stores a scan of code. Repeated scans by the same client inside the
// dedupe window are ignored; it reports whether the scan was recorded.
func (s *ScanService) Record(ctx context.Context, code *entity.QRCode, ip, userAgent string) (bool, error) {
	if s.deduper != nil && s.window > 0 {
		seen, err := s.deduper.Seen(ctx, code.ID, ip+"|"+userAgent, s.window)
		if err != nil {
			s.logger.Warnf("scan dedupe failed for %s: %v", code.ShortCode, err)
		} else if seen {
			return false, nil
		}
	}

	ua := useragent.Parse(userAgent)
	scan := &entity.Scan{
		QRCodeID:        code.ID,
		ScannedAt:       s.now(),
		IPAddress:       ip,
		UserAgent:       userAgent,
		DeviceType:      ua.Device,
		OperatingSystem: ua.OS,
		Browser:         ua.Browser,
	}
	if err := s.storage.Create(ctx, scan); err != nil {
		return false, err
	}
	if err := s.counter.IncrementScans(ctx, code.ID); err != nil {
		return false, err
	}
	return true, nil
}

// Summary aggregates the scans of a QR code. Day, week and month windows
// start at midnight of the current day in local time.
func (s *ScanService) Summary(ctx context.Context, qrCodeID string) (*entity.ScanSummary, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var (
		summary entity.ScanSummary
		err     error
	)
	if summary.TotalScans, err = s.storage.CountSince(ctx, qrCodeID, time.Time{}); err != nil {
		return nil, err
	}
	if summary.TodayScans, err = s.storage.CountSince(ctx, qrCodeID, midnight); err != nil {
		return nil, err
	}
	if summary.WeekScans, err = s.storage.CountSince(ctx, qrCodeID, midnight.AddDate(0, 0, -6)); err != nil {
		return nil, err
	}
	if summary.MonthScans, err = s.storage.CountSince(ctx, qrCodeID, midnight.AddDate(0, 0, -29)); err != nil {
		return nil, err
	}
	if summary.TopDevices, err = s.storage.Top(ctx, qrCodeID, "device_type", topBuckets); err != nil {
		return nil, err
	}
	if summary.TopBrowsers, err = s.storage.Top(ctx, qrCodeID, "browser", topBuckets); err != nil {
		return nil, err
	}
	if summary.TotalScans > 0 {
		last, err := s.storage.Last(ctx, qrCodeID)
		if err != nil {
			return nil, err
		}
		summary.LastScan = &last.ScannedAt
	}
	return &summary, nil
}
