package config

import (
	"fmt"
	"github.com/Badsnus/qr-studio/internal/adapters/database/postgres"
	"github.com/Badsnus/qr-studio/internal/adapters/database/redis"
	"github.com/Badsnus/qr-studio/internal/adapters/logo"
	"github.com/Badsnus/qr-studio/internal/adapters/storage/s3"
	"github.com/Badsnus/qr-studio/pkg/logger"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
	postgresDriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	Database   *gorm.DB
	Redis      *redis.Client
	SMTPDialer *gomail.Dialer
	QR         QR
	HTTPAddr   string
}

// QR holds the rendering settings shared by the bot and the HTTP API.
type QR struct {
	BaseURL     string
	Storage     string // "local" or "s3"
	OutputDir   string
	S3          s3.Options
	ScanWindow  time.Duration
	PreviewIdle time.Duration
	Defaults    qr.Customization
	Logo        logo.Options
	TokenSecret string
	TokenTTL    time.Duration
}

func initConfig() {
	// .env is optional, values from it are read through AutomaticEnv.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("qr.base-url", "http://localhost:8080")
	viper.SetDefault("qr.storage", "local")
	viper.SetDefault("qr.output-dir", "exports")
	viper.SetDefault("http.token-ttl", "720h")
	viper.SetDefault("qr.scan-window", "30s")
	viper.SetDefault("qr.preview-idle", "10m")
	viper.SetDefault("qr.logo.timeout", "5s")
	viper.SetDefault("qr.logo.max-bytes", 2<<20)
	viper.SetDefault("qr.logo.cache-ttl", "1h")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}
}

func Get() *Config {
	initConfig()

	err := logger.Init(logger.Config{
		Debug:     viper.GetBool("settings.debug"),
		TimeZone:  viper.GetString("settings.timezone"),
		LogToFile: viper.GetBool("settings.logging.log-to-file"),
		LogsDir:   viper.GetString("settings.logging.logs-dir"),
	})
	if err != nil {
		panic(err)
	}

	var gormConfig *gorm.Config
	if viper.GetBool("settings.debug") {
		newLogger := gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold: time.Second,
				LogLevel:      gormLogger.Info,
				Colorful:      true,
			},
		)
		gormConfig = &gorm.Config{
			Logger: newLogger,
		}
	} else {
		gormConfig = &gorm.Config{}
	}

	dsn := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%d sslmode=disable",
		viper.GetString("service.database.user"),
		viper.GetString("service.database.password"),
		viper.GetString("service.database.name"),
		viper.GetString("service.database.host"),
		viper.GetInt("service.database.port"),
	)

	database, err := gorm.Open(postgresDriver.Open(dsn), gormConfig)
	if err != nil {
		logger.Log.Panicf("Failed to connect to the database: %v", err)
	} else {
		logger.Log.Info("Successfully connected to the database")
	}

	errMigrate := database.AutoMigrate(postgres.Migrations...)
	if errMigrate != nil {
		logger.Log.Panicf("Failed to migrate database: %v", errMigrate)
	}

	redisClient, err := redis.New(redis.Options{
		Host:     viper.GetString("service.redis.host"),
		Port:     viper.GetString("service.redis.port"),
		Password: viper.GetString("service.redis.password"),
	})
	if err != nil {
		logger.Log.Panicf("Failed to connect to redis: %v", err)
	} else {
		logger.Log.Info("Successfully connected to redis")
	}

	dialer := gomail.NewDialer(
		viper.GetString("service.smtp.host"),
		viper.GetInt("service.smtp.port"),
		viper.GetString("service.smtp.username"),
		viper.GetString("service.smtp.password"),
	)

	qrConfig, err := loadQR()
	if err != nil {
		logger.Log.Panicf("Failed to load qr settings: %v", err)
	}

	return &Config{
		Database:   database,
		Redis:      redisClient,
		SMTPDialer: dialer,
		QR:         qrConfig,
		HTTPAddr:   viper.GetString("http.addr"),
	}
}

func loadQR() (QR, error) {
	defaults := qr.Default()
	if viper.IsSet("qr.defaults") {
		if err := viper.UnmarshalKey("qr.defaults", &defaults); err != nil {
			return QR{}, err
		}
	}
	defaults = defaults.Normalize()
	if err := defaults.Validate(0); err != nil {
		return QR{}, err
	}

	storage := viper.GetString("qr.storage")
	if storage == "" {
		storage = "local"
	}
	if storage != "local" && storage != "s3" {
		return QR{}, fmt.Errorf("unknown qr.storage %q", storage)
	}

	// Without a configured secret tokens stop working on restart.
	secret := viper.GetString("http.token-secret")
	if secret == "" {
		secret = uuid.New().String()
	}

	return QR{
		BaseURL:   viper.GetString("qr.base-url"),
		Storage:   storage,
		OutputDir: viper.GetString("qr.output-dir"),
		S3: s3.Options{
			Endpoint:        viper.GetString("service.s3.endpoint"),
			Region:          viper.GetString("service.s3.region"),
			Bucket:          viper.GetString("service.s3.bucket"),
			Prefix:          viper.GetString("service.s3.prefix"),
			AccessKeyID:     viper.GetString("service.s3.access-key-id"),
			SecretAccessKey: viper.GetString("service.s3.secret-access-key"),
			PublicURL:       viper.GetString("service.s3.public-url"),
		},
		ScanWindow:  viper.GetDuration("qr.scan-window"),
		PreviewIdle: viper.GetDuration("qr.preview-idle"),
		TokenSecret: secret,
		TokenTTL:    viper.GetDuration("http.token-ttl"),
		Defaults:    defaults,
		Logo: logo.Options{
			Timeout:  viper.GetDuration("qr.logo.timeout"),
			MaxBytes: viper.GetInt64("qr.logo.max-bytes"),
			CacheTTL: viper.GetDuration("qr.logo.cache-ttl"),
			Dir:      viper.GetString("qr.logo.dir"),

			Hosts:        viper.GetStringSlice("qr.logo.hosts"),
			AllowPrivate: viper.GetBool("qr.logo.allow-private"),
		},
	}, nil
}
