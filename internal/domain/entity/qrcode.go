package entity

import (
	"fmt"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"strings"
	"time"
)

type QRCode struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt
	OwnerID        int64             `gorm:"index"`
	Name           string            `gorm:"not null"`
	ShortCode      string            `gorm:"not null;uniqueIndex"`
	DestinationURL string            `gorm:"not null"`
	IsActive       bool              `gorm:"not null;default:true"`
	Tags           pq.StringArray    `gorm:"type:text[]"`
	Customization  *qr.Customization `gorm:"serializer:json"`
	ScanCount      int64
}

// Link returns the tracked address encoded in the printed symbol.
//
// The link is in the format <baseURL>/qr/<shortCode>
func (q *QRCode) Link(baseURL string) string {
	return fmt.Sprintf("%s/qr/%s", strings.TrimRight(baseURL, "/"), q.ShortCode)
}

// Style returns the stored customization, or the default one.
func (q *QRCode) Style() qr.Customization {
	if q.Customization == nil {
		return qr.Default()
	}
	return q.Customization.Clone()
}
