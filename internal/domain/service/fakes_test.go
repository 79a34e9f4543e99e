package service

import (
	"context"
	"sync"
	"time"

	"github.com/Badsnus/qr-studio/internal/domain/common/errorz"
	"github.com/Badsnus/qr-studio/internal/domain/entity"
	"github.com/Badsnus/qr-studio/pkg/logger/types"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/google/uuid"
)

func nopLogger() *types.Logger {
	return types.Nop("test")
}

type memQRCodes struct {
	mu    sync.Mutex
	codes map[string]*entity.QRCode
	scans map[string]int64
}

func newMemQRCodes() *memQRCodes {
	return &memQRCodes{codes: map[string]*entity.QRCode{}, scans: map[string]int64{}}
}

func (m *memQRCodes) Create(_ context.Context, code *entity.QRCode) (*entity.QRCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code.ID = uuid.New().String()
	cp := *code
	m.codes[code.ID] = &cp
	return code, nil
}

func (m *memQRCodes) Get(_ context.Context, id string) (*entity.QRCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[id]
	if !ok {
		return nil, errorz.ErrNotFound
	}
	cp := *code
	return &cp, nil
}

func (m *memQRCodes) GetByShortCode(_ context.Context, shortCode string) (*entity.QRCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, code := range m.codes {
		if code.ShortCode == shortCode {
			cp := *code
			return &cp, nil
		}
	}
	return nil, errorz.ErrNotFound
}

func (m *memQRCodes) GetByOwner(_ context.Context, ownerID int64, _, _ int) ([]entity.QRCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.QRCode
	for _, code := range m.codes {
		if code.OwnerID == ownerID {
			out = append(out, *code)
		}
	}
	return out, nil
}

func (m *memQRCodes) Update(_ context.Context, code *entity.QRCode) (*entity.QRCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *code
	m.codes[code.ID] = &cp
	return code, nil
}

func (m *memQRCodes) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, id)
	return nil
}

func (m *memQRCodes) IncrementScans(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[id]++
	return nil
}

type memFiles struct {
	saved   []*qr.File
	deleted []string
}

func (m *memFiles) Delete(id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memFiles) Save(file *qr.File) (string, error) {
	m.saved = append(m.saved, file)
	return "/out/" + file.Name, nil
}

type memScans struct {
	mu    sync.Mutex
	scans []entity.Scan
}

func (m *memScans) Create(_ context.Context, scan *entity.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans = append(m.scans, *scan)
	return nil
}

func (m *memScans) CountSince(_ context.Context, qrCodeID string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.scans {
		if s.QRCodeID == qrCodeID && !s.ScannedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memScans) Top(_ context.Context, qrCodeID, column string, limit int) ([]entity.Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	var order []string
	for _, s := range m.scans {
		if s.QRCodeID != qrCodeID {
			continue
		}
		key := s.Browser
		if column == "device_type" {
			key = s.DeviceType
		}
		if key == "" {
			continue
		}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}
	var out []entity.Bucket
	for _, k := range order {
		out = append(out, entity.Bucket{Name: k, Count: counts[k]})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memScans) Last(_ context.Context, qrCodeID string) (*entity.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *entity.Scan
	for i := range m.scans {
		s := m.scans[i]
		if s.QRCodeID == qrCodeID && (last == nil || s.ScannedAt.After(last.ScannedAt)) {
			last = &s
		}
	}
	if last == nil {
		return nil, errorz.ErrNotFound
	}
	return last, nil
}

type memDeduper struct {
	seen map[string]bool
}

func (m *memDeduper) Seen(_ context.Context, qrCodeID, client string, _ time.Duration) (bool, error) {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	key := qrCodeID + client
	was := m.seen[key]
	m.seen[key] = true
	return was, nil
}
