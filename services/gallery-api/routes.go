package main

import (
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/metrics"
	"github.com/bitmark-inc/client-gallery/upload"
)

// maxUploadBodySize caps the body of upload requests to the largest set of
// files a request may carry plus room for the form fields.
const maxUploadBodySize = gallery.MaxFilesPerRequest*gallery.MaxFileSize + 1<<20

func (s *GalleryAPIServer) SetupRoute() {
	// recovery wraps sentrygin so repanicked errors still get a JSON response
	s.route.Use(gin.CustomRecovery(s.recoverPanic))
	s.route.Use(sentrygin.New(sentrygin.Options{
		Repanic: true,
	}))

	s.route.Use(requestLogger())
	s.route.Use(metrics.GinMiddleware(s.metrics))
	s.route.Use(securityHeaders())
	s.route.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.route.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})

	s.route.GET("/", s.Root)
	s.route.GET("/health", s.Health)

	if local, ok := s.storage.(*upload.LocalStorage); ok {
		s.route.Static(local.Route(), local.Dir())
	}

	authRoutes := s.route.Group("/api/auth", s.authLimiter.middleware())
	authRoutes.POST("/register", s.Register)
	authRoutes.POST("/login", s.Login)

	galleries := s.route.Group("/api/galleries", s.authenticate)
	galleries.POST("", limitBody(s.uploadBodyLimit), s.CreateGallery)
	galleries.GET("", s.ListGalleries)
	galleries.GET("/:id", s.GetGallery)
	galleries.POST("/:id/images", limitBody(s.uploadBodyLimit), s.AddImages)
	galleries.PUT("/:id/images/:imageId", s.UpdateImage)
	galleries.POST("/:id/images/:imageId/like", s.ToggleLike)
	galleries.PUT("/:id/cover", s.SetCover)
}
