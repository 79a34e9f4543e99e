package main

import (
	"context"
	"errors"
	"github.com/Badsnus/qr-studio/cmd/bot"
	"github.com/Badsnus/qr-studio/internal/adapters/config"
	"github.com/Badsnus/qr-studio/internal/adapters/controller/api"
	setupBot "github.com/Badsnus/qr-studio/internal/adapters/controller/telegram/setup"
	"github.com/Badsnus/qr-studio/pkg/logger"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"
)

func main() {
	cfg := config.Get()
	b, err := bot.New(cfg)
	if err != nil {
		log.Panic(err)
	}

	setupBot.Setup(b)

	server, err := api.Setup(b, cfg.HTTPAddr)
	if err != nil {
		log.Panic(err)
	}
	go func() {
		logger.Log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Panicf("HTTP server failed: %v", err)
		}
	}()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go b.Previews.Run(sweepCtx, time.Minute)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		logger.Log.Info("Shutting down")
		stopSweep()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Log.Errorf("HTTP server shutdown: %v", err)
		}
		b.Stop()
	}()

	b.Start()
}
