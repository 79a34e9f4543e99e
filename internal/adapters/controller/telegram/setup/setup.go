package setup

import (
	"github.com/Badsnus/qr-studio/cmd/bot"
	"github.com/Badsnus/qr-studio/internal/adapters/controller/telegram/handlers/middlewares"
	"github.com/Badsnus/qr-studio/internal/adapters/controller/telegram/handlers/qr"
	"github.com/spf13/viper"
	"gopkg.in/telebot.v3/middleware"
)

func Setup(b *bot.Bot) {
	// Pre-setup and global middlewares
	middle := middlewares.New(b)
	qrHandler := qr.New(b)

	if viper.GetBool("settings.debug") {
		b.Use(middleware.Logger())
	}
	b.Use(middleware.AutoRespond())
	b.Use(middle.PrivateOnly)

	// Setup handlers
	qrHandler.Setup(b.Group(), middle.OwnsCode)
}
