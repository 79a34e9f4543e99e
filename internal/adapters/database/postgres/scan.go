package postgres

import (
	"context"
	"github.com/Badsnus/qr-studio/internal/domain/entity"
	"gorm.io/gorm"
	"time"
)

type ScanStorage struct {
	db *gorm.DB
}

func NewScanStorage(db *gorm.DB) *ScanStorage {
	return &ScanStorage{
		db: db,
	}
}

func (s *ScanStorage) Create(ctx context.Context, scan *entity.Scan) error {
	return s.db.WithContext(ctx).Create(scan).Error
}

// CountSince counts the scans of a QR code at or after since. A zero since
// counts every scan.
func (s *ScanStorage) CountSince(ctx context.Context, qrCodeID string, since time.Time) (int64, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&entity.Scan{}).Where("qr_code_id = ?", qrCodeID)
	if !since.IsZero() {
		query = query.Where("scanned_at >= ?", since)
	}
	err := query.Count(&count).Error
	return count, err
}

// Top groups the scans of a QR code by column and returns the largest groups.
func (s *ScanStorage) Top(ctx context.Context, qrCodeID, column string, limit int) ([]entity.Bucket, error) {
	var buckets []entity.Bucket
	err := s.db.WithContext(ctx).
		Model(&entity.Scan{}).
		Select(column+" AS name, COUNT(*) AS count").
		Where("qr_code_id = ? AND "+column+" <> ''", qrCodeID).
		Group(column).
		Order("count desc").
		Limit(limit).
		Scan(&buckets).Error
	return buckets, err
}

func (s *ScanStorage) Last(ctx context.Context, qrCodeID string) (*entity.Scan, error) {
	var scan entity.Scan
	err := s.db.WithContext(ctx).Where("qr_code_id = ?", qrCodeID).Order("scanned_at desc").First(&scan).Error
	return &scan, notFound(err)
}
