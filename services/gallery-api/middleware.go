package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/bitmark-inc/client-gallery/log"
	"github.com/bitmark-inc/client-gallery/traceutils"
)

const requesterKey = "requester"

// authenticate validates the bearer token of a request and stores the
// requester id in the gin context.
func (s *GalleryAPIServer) authenticate(c *gin.Context) {
	scheme, token, _ := strings.Cut(c.GetHeader("Authorization"), " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, "Bearer") || token == "" {
		s.abortWithError(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	claims, err := s.auth.ParseToken(token)
	if err != nil {
		s.abortWithError(c, http.StatusForbidden, "Invalid token", err)
		return
	}

	requester, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil {
		s.abortWithError(c, http.StatusForbidden, "Invalid token", err)
		return
	}

	traceutils.SetRequesterTag(c, claims.ID)
	c.Set(requesterKey, requester)
	c.Next()
}

// requester returns the authenticated user id of a request
func requester(c *gin.Context) primitive.ObjectID {
	return c.MustGet(requesterKey).(primitive.ObjectID)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request handled", log.SourceHTTP,
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("clientIP", c.ClientIP()))
	}
}

// securityHeaders sets the response headers that keep browsers from sniffing
// content types or framing the API.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		c.Next()
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
