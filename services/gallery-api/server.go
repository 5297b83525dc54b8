package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/auth"
	"github.com/bitmark-inc/client-gallery/log"
	"github.com/bitmark-inc/client-gallery/upload"
)

type GalleryAPIServer struct {
	config Config
	route  *gin.Engine

	store       gallery.Store
	auth        *auth.Service
	storage     upload.Storage
	metrics     tally.Scope
	authLimiter *visitorLimiter

	// uploadBodyLimit caps the request body of gallery and image uploads
	uploadBodyLimit int64

	startedAt time.Time
}

func NewGalleryAPIServer(cfg Config,
	store gallery.Store,
	authService *auth.Service,
	storage upload.Storage,
	metricsScope tally.Scope) *GalleryAPIServer {
	r := gin.New()
	r.ContextWithFallback = true

	return &GalleryAPIServer{
		config: cfg,
		route:  r,

		store:       store,
		auth:        authService,
		storage:     storage,
		metrics:     metricsScope,
		authLimiter: newVisitorLimiter(cfg.Server.AuthRateLimit, cfg.Server.AuthRateBurst),

		uploadBodyLimit: maxUploadBodySize,

		startedAt: time.Now(),
	}
}

// Run serves the API until ctx is cancelled and then drains in-flight requests.
func (s *GalleryAPIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.Port,
		Handler:           s.route,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server is listening", log.SourceHTTP, zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("server is preparing to shutdown", log.SourceHTTP)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
