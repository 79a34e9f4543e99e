package entity

import "time"

// Scan is one resolution of a QR code short link.
type Scan struct {
	ID              uint      `gorm:"primaryKey"`
	QRCodeID        string    `gorm:"not null;type:uuid;index"`
	ScannedAt       time.Time `gorm:"not null;index"`
	IPAddress       string
	UserAgent       string
	DeviceType      string
	OperatingSystem string
	Browser         string
}

// ScanSummary aggregates the scans of one QR code.
type ScanSummary struct {
	TotalScans  int64
	TodayScans  int64
	WeekScans   int64
	MonthScans  int64
	TopDevices  []Bucket
	TopBrowsers []Bucket
	LastScan    *time.Time
}

type Bucket struct {
	Name  string
	Count int64
}
