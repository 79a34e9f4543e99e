package smtp

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recorder struct {
	sent []*gomail.Message
	err  error
}

func (r *recorder) DialAndSend(m ...*gomail.Message) error {
	r.sent = append(r.sent, m...)
	return r.err
}

func TestSendQRCode(t *testing.T) {
	rec := &recorder{}
	c := NewClient(rec)
	file := &qr.File{Name: "qr-abc.png", Format: qr.FormatPNG, Data: []byte("\x89PNG fake")}

	require.NoError(t, c.SendQRCode("user@example.com", "Menu", "https://qr.example.com/qr/abc", file))
	require.Len(t, rec.sent, 1)

	msg := rec.sent[0]
	assert.Equal(t, []string{"user@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"QR code: Menu"}, msg.GetHeader("Subject"))
	assert.True(t, strings.HasPrefix(msg.GetHeader("Message-ID")[0], "<"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `filename="qr-abc.png"`)
	assert.Contains(t, buf.String(), "image/png")

	rec.err = errors.New("smtp down")
	assert.Error(t, c.SendQRCode("user@example.com", "Menu", "x", file))
}
