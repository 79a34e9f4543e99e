package postgres

import (
	"context"
	"errors"
	"github.com/Badsnus/qr-studio/internal/domain/common/errorz"
	"github.com/Badsnus/qr-studio/internal/domain/entity"
	"gorm.io/gorm"
)

type QRCodeStorage struct {
	db *gorm.DB
}

func NewQRCodeStorage(db *gorm.DB) *QRCodeStorage {
	return &QRCodeStorage{
		db: db,
	}
}

func (s *QRCodeStorage) Create(ctx context.Context, code *entity.QRCode) (*entity.QRCode, error) {
	err := s.db.WithContext(ctx).Create(code).Error
	return code, err
}

func (s *QRCodeStorage) Get(ctx context.Context, id string) (*entity.QRCode, error) {
	var code entity.QRCode
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&code).Error
	return &code, notFound(err)
}

func (s *QRCodeStorage) GetByShortCode(ctx context.Context, shortCode string) (*entity.QRCode, error) {
	var code entity.QRCode
	err := s.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&code).Error
	return &code, notFound(err)
}

func (s *QRCodeStorage) GetByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]entity.QRCode, error) {
	var codes []entity.QRCode
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&codes).Error
	return codes, err
}

func (s *QRCodeStorage) Update(ctx context.Context, code *entity.QRCode) (*entity.QRCode, error) {
	err := s.db.WithContext(ctx).Save(code).Error
	return code, err
}

// Delete soft deletes a QR code, its scans are kept for analytics.
func (s *QRCodeStorage) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.QRCode{}).Error
}

// IncrementScans bumps the denormalized scan counter of a QR code.
func (s *QRCodeStorage) IncrementScans(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Model(&entity.QRCode{}).
		Where("id = ?", id).
		UpdateColumn("scan_count", gorm.Expr("scan_count + ?", 1)).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorz.ErrNotFound
	}
	return err
}
