package api

import (
	"github.com/Badsnus/qr-studio/cmd/bot"
	"github.com/Badsnus/qr-studio/internal/adapters/database/postgres"
	"github.com/Badsnus/qr-studio/internal/domain/service"
	"github.com/Badsnus/qr-studio/pkg/logger"
	"net/http"
	"time"
)

// Setup builds the HTTP server serving short links and the render API.
func Setup(b *bot.Bot, addr string) (*http.Server, error) {
	apiLogger, err := logger.Named("api")
	if err != nil {
		return nil, err
	}

	qrStorage := postgres.NewQRCodeStorage(b.DB)
	scanStorage := postgres.NewScanStorage(b.DB)
	h := NewHandler(
		service.NewQrService(qrStorage, b.Renderer, b.Exports, b.QR.BaseURL, b.QR.Defaults, apiLogger),
		service.NewScanService(scanStorage, qrStorage, b.Redis.Scans, b.QR.ScanWindow, apiLogger),
		b.Previews,
		b.Tokens,
		apiLogger,
	)

	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
