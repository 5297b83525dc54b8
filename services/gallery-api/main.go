package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bitmark-inc/config-loader"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/auth"
	"github.com/bitmark-inc/client-gallery/log"
	"github.com/bitmark-inc/client-gallery/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadConfig("GALLERY")

	// the logger reads its level from the decoded config, so config errors are reported before it exists
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	if err := log.Initialize(cfg.Log.Level, cfg.Debug); err != nil {
		panic(err)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.Environment,
	}); err != nil {
		log.Panic("Sentry initialization failed", zap.Error(err))
	}
	defer sentry.Flush(2 * time.Second)

	store, err := gallery.NewMongodbStore(ctx, cfg.Store.DBURI, cfg.Store.DBName)
	if err != nil {
		log.Panic("fail to initiate gallery store", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureIndexes(ctx); err != nil {
		log.Panic("fail to create store indexes", zap.Error(err))
	}

	storage, err := newStorage(cfg)
	if err != nil {
		log.Panic("fail to initiate upload storage", zap.Error(err))
	}

	scope, closer := metrics.NewRootScope(cfg.Metrics.Prefix, map[string]string{"service": "gallery-api"})
	defer closer.Close()

	authService := auth.New(store, cfg.JWT.Secret, cfg.JWT.TTL, cfg.Auth.BcryptCost)

	s := NewGalleryAPIServer(cfg, store, authService, storage, scope)
	s.SetupRoute()
	if err := s.Run(ctx); err != nil {
		log.Panic("server interrupted", zap.Error(err))
	}
}
