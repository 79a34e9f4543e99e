package config

import (
	"testing"
	"time"

	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadQR(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("qr.base-url", "https://qr.example.com")
	viper.Set("qr.output-dir", "out")
	viper.Set("qr.scan-window", "45s")
	viper.Set("qr.logo.timeout", "2s")
	viper.Set("qr.logo.max-bytes", 1024)
	viper.Set("qr.logo.hosts", []string{"cdn.example.com"})
	viper.Set("qr.defaults", map[string]any{
		"size":    512,
		"pattern": "dots",
		"colors": map[string]any{
			"foreground": "#112233",
		},
		"eye-shape": map[string]any{
			"outer": "circle",
		},
	})

	cfg, err := loadQR()
	require.NoError(t, err)
	assert.Equal(t, "https://qr.example.com", cfg.BaseURL)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 45*time.Second, cfg.ScanWindow)
	assert.Equal(t, 2*time.Second, cfg.Logo.Timeout)
	assert.Equal(t, int64(1024), cfg.Logo.MaxBytes)
	assert.Equal(t, []string{"cdn.example.com"}, cfg.Logo.Hosts)
	assert.False(t, cfg.Logo.AllowPrivate)

	assert.Equal(t, 512, cfg.Defaults.Size)
	assert.Equal(t, qr.PatternDots, cfg.Defaults.Pattern)
	assert.Equal(t, qr.Color("#112233"), cfg.Defaults.Colors.Foreground)
	assert.Equal(t, qr.EyeCircle, cfg.Defaults.EyeShape.Outer)
	assert.Equal(t, qr.Default().Colors.Background, cfg.Defaults.Colors.Background)
}

func TestLoadQRRejectsBadDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("qr.defaults", map[string]any{"size": 5})
	_, err := loadQR()
	assert.ErrorIs(t, err, qr.ErrInvalidCustomization)
}

func TestLoadQRStorage(t *testing.T) {
	t.Cleanup(viper.Reset)

	cfg, err := loadQR()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Storage)
	assert.NotEmpty(t, cfg.TokenSecret)

	viper.Set("qr.storage", "s3")
	viper.Set("service.s3.bucket", "codes")
	viper.Set("http.token-secret", "s3cr3t")
	cfg, err = loadQR()
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage)
	assert.Equal(t, "codes", cfg.S3.Bucket)
	assert.Equal(t, "s3cr3t", cfg.TokenSecret)

	viper.Set("qr.storage", "ftp")
	_, err = loadQR()
	assert.Error(t, err)
}
