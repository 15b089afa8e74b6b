package main

import (
	"context"
	"github.com/evanhutnik/weatherstate-service/internal/broadcast"
	"github.com/evanhutnik/weatherstate-service/internal/config"
	"github.com/evanhutnik/weatherstate-service/internal/geocoding"
	"github.com/evanhutnik/weatherstate-service/internal/notify"
	"github.com/evanhutnik/weatherstate-service/internal/server"
	"github.com/evanhutnik/weatherstate-service/internal/types"
	"github.com/evanhutnik/weatherstate-service/internal/weatherapi"
	"github.com/evanhutnik/weatherstate-service/internal/weatherstate"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	baseLogger, _ := zap.NewProduction()

	cfg, err := config.Load()
	if err != nil {
		baseLogger.Sugar().Fatalw(err.Error(), "action", "LoadConfig")
	}
	if cfg.LogLevel == "debug" {
		baseLogger, _ = zap.NewDevelopment()
	}
	defer baseLogger.Sync()
	logger := baseLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hc := &http.Client{Timeout: cfg.HttpTimeout}
	geo := geocoding.New(
		geocoding.BaseUrlOption(cfg.ApiBaseUrl),
		geocoding.HttpClientOption(hc),
	)
	wx := weatherapi.New(
		weatherapi.BaseUrlOption(cfg.ApiBaseUrl),
		weatherapi.HttpClientOption(hc),
	)

	toaster := notify.NewToaster(logger, notify.DefaultCapacity)
	notifier := notify.Multi{toaster}

	var bc *broadcast.Redis
	if !cfg.DisableRedis {
		bc = broadcast.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddress}), logger)
		defer bc.Close()
		notifier = append(notifier, bc)
	}

	ctrl := weatherstate.New(geo, wx, notifier,
		weatherstate.DefaultLocationOption(cfg.DefaultLocation),
		weatherstate.LoggerOption(logger),
	)
	defer ctrl.Close()
	if bc != nil {
		unsubscribe := ctrl.Subscribe(func(s types.State) {
			bc.PublishState(ctx, s)
		})
		defer unsubscribe()
	}

	srv := server.New(ctrl, toaster,
		server.BaseContextOption(ctx),
		server.LoggerOption(logger),
	)

	ctrl.Activate(ctx)

	if err := srv.Run(ctx, cfg.ListenAddress); err != nil {
		logger.Errorw(err.Error(), "action", "Run")
	}
	logger.Info("shutdown complete")
}
