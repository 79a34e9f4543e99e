package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		header string
		want   Agent
	}{
		{
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			Agent{Device: "mobile", OS: "iOS", Browser: "Safari"},
		},
		{
			"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
			Agent{Device: "mobile", OS: "Android", Browser: "Chrome"},
		},
		{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0",
			Agent{Device: "desktop", OS: "Windows", Browser: "Edge"},
		},
		{
			"Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/119.0 Mobile/15E148 Safari/604.1",
			Agent{Device: "tablet", OS: "iOS", Browser: "Chrome"},
		},
		{
			"Googlebot/2.1 (+http://www.google.com/bot.html)",
			Agent{Device: "bot"},
		},
		{"", Agent{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Parse(tt.header), tt.header)
	}
}
