package smtp

import (
	"fmt"
	"github.com/Badsnus/qr-studio/pkg/logger"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
	"io"
	"time"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Client представляет почтовый клиент.
type Client struct {
	dialer sender
}

// NewClient инициализирует Client.
func NewClient(dialer sender) *Client {
	return &Client{dialer: dialer}
}

// SendQRCode отправляет QR-код вложением.
func (c *Client) SendQRCode(to, name, link string, file *qr.File) error {
	msg := NewQRCodeMessage(to, name, link, file)
	if err := c.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send qr code to %s: %w", to, err)
	}

	if logger.Log != nil {
		logger.Log.Infof("QR code %s successfully sent to %s", file.Name, to)
	}
	return nil
}

// NewQRCodeMessage builds the e-mail carrying file as an attachment.
func NewQRCodeMessage(to, name, link string, file *qr.File) *gomail.Message {
	msg := gomail.NewMessage()

	domain := viper.GetString("service.smtp.domain")
	msg.SetHeader("Message-ID", generateMessageID(domain))
	msg.SetHeader("Date", time.Now().Format(time.RFC1123Z))
	msg.SetHeader("From", viper.GetString("service.smtp.email"))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("QR code: %s", name))
	msg.SetBody("text/plain", fmt.Sprintf("Your QR code %q is attached.\nIt opens %s", name, link))
	msg.AddAlternative("text/html", fmt.Sprintf("<p>Your QR code <b>%s</b> is attached.</p><p>It opens <a href=%q>%s</a></p>", name, link, link))

	data := file.Data
	msg.Attach(file.Name,
		gomail.SetHeader(map[string][]string{"Content-Type": {file.Format.MIME()}}),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}),
	)
	return msg
}

func generateMessageID(domain string) string {
	uniqueID := uuid.New().String()
	return fmt.Sprintf("<%s@%s>", uniqueID, domain)
}
