package middlewares

import (
	"context"
	"errors"
	"github.com/Badsnus/qr-studio/cmd/bot"
	"github.com/Badsnus/qr-studio/internal/adapters/database/postgres"
	"github.com/Badsnus/qr-studio/internal/domain/common/errorz"
	"github.com/Badsnus/qr-studio/internal/domain/entity"
	"github.com/Badsnus/qr-studio/pkg/logger/types"
	tele "gopkg.in/telebot.v3"
)

const codeKey = "qrCode"

type qrCodeStorage interface {
	GetByShortCode(ctx context.Context, shortCode string) (*entity.QRCode, error)
}

type Handler struct {
	logger  *types.Logger
	storage qrCodeStorage
}

func New(b *bot.Bot) *Handler {
	return &Handler{
		logger:  b.Logger,
		storage: postgres.NewQRCodeStorage(b.DB),
	}
}

// OwnsCode loads the QR code named by the first argument and rejects senders
// that do not own it. Handlers read the code with Code.
func (h Handler) OwnsCode(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Pass the QR code id, see /list")
		}

		code, err := h.storage.GetByShortCode(context.Background(), args[0])
		if errors.Is(err, errorz.ErrNotFound) {
			return c.Send("QR code not found")
		}
		if err != nil {
			h.logger.Errorf("(user: %d) error while getting qr code from db: %v", c.Sender().ID, err)
			return c.Send("Technical issues, try again later")
		}
		if code.OwnerID != c.Sender().ID {
			h.logger.Infof("(user: %d) denied access to %s", c.Sender().ID, code.ShortCode)
			return c.Send("QR code not found")
		}

		c.Set(codeKey, code)
		return next(c)
	}
}

// PrivateOnly ignores updates outside private chats.
func (h Handler) PrivateOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Chat() == nil || c.Chat().Type != tele.ChatPrivate {
			return nil
		}
		return next(c)
	}
}

// Code returns the QR code stored by OwnsCode.
func Code(c tele.Context) *entity.QRCode {
	code, _ := c.Get(codeKey).(*entity.QRCode)
	return code
}
