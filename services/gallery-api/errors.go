package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/log"
	"github.com/bitmark-inc/client-gallery/traceutils"
	"github.com/bitmark-inc/client-gallery/upload"
)

// abortWithError writes a JSON error body. Server errors are captured to sentry
// and, in development, carry the underlying error text.
func (s *GalleryAPIServer) abortWithError(c *gin.Context, code int, message string, traceErr error) {
	fields := []zap.Field{
		log.SourceHTTP,
		zap.Int("status", code),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	}
	if traceErr != nil {
		fields = append(fields, zap.Error(traceErr))
	}

	body := gin.H{"message": message}

	if code >= http.StatusInternalServerError {
		log.Error(message, fields...)
		traceutils.CaptureException(c, traceErr)

		if s.config.Environment == gallery.DevelopmentEnvironment && traceErr != nil {
			body["error"] = traceErr.Error()
		}
	} else {
		log.Info(message, fields...)
	}

	c.AbortWithStatusJSON(code, body)
}

func (s *GalleryAPIServer) recoverPanic(c *gin.Context, recovered any) {
	s.abortWithError(c, http.StatusInternalServerError, "Internal server error", fmt.Errorf("panic: %v", recovered))
}

// abortWithUploadError maps upload failures to client errors. Anything else is
// reported as a server error with fallback as message.
func (s *GalleryAPIServer) abortWithUploadError(c *gin.Context, fallback string, err error) {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, upload.ErrNoFiles):
		s.abortWithError(c, http.StatusBadRequest, "At least one image is required", err)
	case errors.Is(err, upload.ErrTooManyFiles):
		s.abortWithError(c, http.StatusBadRequest,
			fmt.Sprintf("Too many files. Maximum is %d per request.", gallery.MaxFilesPerRequest), err)
	case errors.Is(err, upload.ErrFileTooLarge), errors.As(err, &maxBytesErr):
		s.abortWithError(c, http.StatusBadRequest, "File is too large. Maximum size is 10MB.", err)
	case errors.Is(err, upload.ErrUnsupportedType):
		s.abortWithError(c, http.StatusBadRequest, "Only images are allowed", err)
	case errors.Is(err, errInvalidForm):
		s.abortWithError(c, http.StatusBadRequest, "Invalid form data", err)
	default:
		s.abortWithError(c, http.StatusInternalServerError, fallback, err)
	}
}
