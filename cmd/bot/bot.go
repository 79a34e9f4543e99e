package bot

import (
	"github.com/Badsnus/qr-studio/internal/adapters/config"
	"github.com/Badsnus/qr-studio/internal/adapters/database/redis"
	"github.com/Badsnus/qr-studio/internal/adapters/logo"
	"github.com/Badsnus/qr-studio/internal/adapters/storage/s3"
	"github.com/Badsnus/qr-studio/internal/domain/service"
	"github.com/Badsnus/qr-studio/pkg/generator"
	"github.com/Badsnus/qr-studio/pkg/jwt"
	"github.com/Badsnus/qr-studio/pkg/logger"
	"github.com/Badsnus/qr-studio/pkg/logger/types"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/gomail.v2"
	tele "gopkg.in/telebot.v3"
	"gorm.io/gorm"
	"time"
)

// Exports stores rendered QR code files.
type Exports interface {
	Save(file *qr.File) (string, error)
	Delete(id string) error
}

type Bot struct {
	*tele.Bot
	DB         *gorm.DB
	Redis      *redis.Client
	SMTPDialer *gomail.Dialer
	Logger     *types.Logger
	Renderer   *qr.Renderer
	Exports    Exports
	Previews   *service.PreviewHub
	Tokens     *jwt.Manager
	QR         config.QR
}

func New(config *config.Config) (*Bot, error) {
	botLogger, err := logger.Named("bot")
	if err != nil {
		return nil, err
	}
	logoLogger, err := logger.Named("logo")
	if err != nil {
		return nil, err
	}

	settings := tele.Settings{
		Token:     viper.GetString("bot.token"),
		Poller:    &tele.LongPoller{Timeout: 10 * time.Second},
		ParseMode: tele.ModeHTML,
	}
	settings.OnError = func(err error, ctx tele.Context) {
		if ctx.Callback() == nil {
			botLogger.Errorf("(user: %d) | Error: %v", ctx.Sender().ID, err)
		} else {
			botLogger.Errorf("(user: %d) | unique: %s | Error: %v", ctx.Sender().ID, ctx.Callback().Unique, err)
		}
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, err
	}

	if err = b.SetCommands(Commands); err != nil {
		return nil, err
	}

	exports, err := newExports(config.QR)
	if err != nil {
		return nil, err
	}

	renderer := qr.NewRenderer(logo.New(config.QR.Logo, config.Redis.Logos, logoLogger))
	bot := &Bot{
		Bot:        b,
		DB:         config.Database,
		Redis:      config.Redis,
		SMTPDialer: config.SMTPDialer,
		Logger:     botLogger,
		Renderer:   renderer,
		Exports:    exports,
		Previews:   service.NewPreviewHub(renderer, config.QR.PreviewIdle),
		Tokens:     jwt.NewManager(config.QR.TokenSecret, config.QR.TokenTTL),
		QR:         config.QR,
	}

	return bot, nil
}

func newExports(cfg config.QR) (Exports, error) {
	if cfg.Storage == "s3" {
		return s3.NewStorage(cfg.S3)
	}
	return generator.NewFiles(cfg.OutputDir)
}

// Commands are shown in the bot menu.
var Commands = []tele.Command{
	{Text: "start", Description: "Help"},
	{Text: "qr", Description: "Render a QR code: /qr <text> [preset]"},
	{Text: "new", Description: "Create a tracked QR code: /new <name> <url> [preset]"},
	{Text: "list", Description: "Your QR codes"},
	{Text: "code", Description: "Download a QR code: /code <id> [png|jpg|svg|pdf]"},
	{Text: "style", Description: "Change the style: /style <id> <preset>"},
	{Text: "stats", Description: "Scan statistics: /stats <id>"},
	{Text: "mail", Description: "Send a QR code by e-mail: /mail <id> <email> [format]"},
	{Text: "pause", Description: "Stop redirecting a QR code: /pause <id>"},
	{Text: "resume", Description: "Resume redirecting a QR code: /resume <id>"},
	{Text: "delete", Description: "Delete a QR code: /delete <id>"},
	{Text: "token", Description: "API token for your QR codes"},
}

// Start mirrors logs to the configured channel, if any, and polls updates
// until Stop is called.
func (b *Bot) Start() {
	logger.Log.Info("Bot starting")

	if viper.GetBool("settings.logging.log-to-channel") {
		if err := b.hookChannelLogs(); err != nil {
			logger.Log.Errorf("Failed to mirror logs to channel: %v", err)
		}
	}
	b.Bot.Start()
}

func (b *Bot) hookChannelLogs() error {
	notifyLogger, err := logger.Named("notify")
	if err != nil {
		return err
	}
	logHook, err := service.NewNotifyService(b.Bot, notifyLogger).LogHook(
		viper.GetInt64("settings.logging.channel-id"),
		zapcore.Level(viper.GetInt("settings.logging.channel-log-level")),
	)
	if err != nil {
		return err
	}
	logger.SetLogHook(logHook)
	return nil
}
