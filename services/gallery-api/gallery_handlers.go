package main

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/log"
	"github.com/bitmark-inc/client-gallery/metrics"
	"github.com/bitmark-inc/client-gallery/traceutils"
	"github.com/bitmark-inc/client-gallery/upload"
)

const imagesField = "images"

var errInvalidForm = errors.New("invalid form data")

// CreateGallery stores the uploaded images and creates a gallery with the first one as the cover
func (s *GalleryAPIServer) CreateGallery(c *gin.Context) {
	traceutils.SetHandlerTag(c, "CreateGallery")

	files, err := s.uploadedFiles(c)
	if err != nil {
		s.abortWithUploadError(c, "Error creating gallery", err)
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	dateValue := strings.TrimSpace(c.PostForm("date"))
	if title == "" || dateValue == "" {
		s.abortWithError(c, http.StatusBadRequest, "Title and date are required", nil)
		return
	}

	date, err := gallery.ParseDate(dateValue)
	if err != nil {
		s.abortWithError(c, http.StatusBadRequest, "Invalid date", err)
		return
	}

	stored, err := s.saveFiles(c, files)
	if err != nil {
		s.abortWithUploadError(c, "Error creating gallery", err)
		return
	}

	now := time.Now()
	g := gallery.NewGallery(title, date, requester(c), newImages(stored, now), now)

	created, err := s.store.CreateGallery(c, g)
	if err != nil {
		upload.Remove(c, s.storage, stored)
		s.abortWithError(c, http.StatusInternalServerError, "Error creating gallery", err)
		return
	}

	log.Info("gallery created", log.SourceHTTP,
		zap.String("galleryID", created.ID.Hex()), zap.Int("images", len(created.Images)))

	c.JSON(http.StatusOK, created)
}

// ListGalleries returns the galleries of the requester, newest first
func (s *GalleryAPIServer) ListGalleries(c *gin.Context) {
	traceutils.SetHandlerTag(c, "ListGalleries")

	galleries, err := s.store.GetGalleriesByOwner(c, requester(c))
	if err != nil {
		s.abortWithError(c, http.StatusInternalServerError, "Error fetching galleries", err)
		return
	}

	c.JSON(http.StatusOK, galleries)
}

func (s *GalleryAPIServer) GetGallery(c *gin.Context) {
	traceutils.SetHandlerTag(c, "GetGallery")

	id, ok := s.galleryID(c)
	if !ok {
		return
	}

	g, err := s.store.GetGallery(c, id, requester(c))
	if err != nil {
		s.abortWithStoreError(c, "Error fetching gallery", err)
		return
	}

	c.JSON(http.StatusOK, g)
}

// AddImages appends uploaded images to a gallery of the requester
func (s *GalleryAPIServer) AddImages(c *gin.Context) {
	traceutils.SetHandlerTag(c, "AddImages")

	id, ok := s.galleryID(c)
	if !ok {
		return
	}
	owner := requester(c)

	// ownership is checked before anything is written to the storage
	if _, err := s.store.GetGallery(c, id, owner); err != nil {
		s.abortWithStoreError(c, "Error uploading images", err)
		return
	}

	files, err := s.uploadedFiles(c)
	if err != nil {
		s.abortWithUploadError(c, "Error uploading images", err)
		return
	}

	stored, err := s.saveFiles(c, files)
	if err != nil {
		s.abortWithUploadError(c, "Error uploading images", err)
		return
	}

	g, err := s.store.PushImages(c, id, owner, newImages(stored, time.Now()))
	if err != nil {
		upload.Remove(c, s.storage, stored)
		s.abortWithStoreError(c, "Error uploading images", err)
		return
	}

	c.JSON(http.StatusOK, g)
}

// UpdateImage sets the description of an image
func (s *GalleryAPIServer) UpdateImage(c *gin.Context) {
	traceutils.SetHandlerTag(c, "UpdateImage")

	id, idErr := primitive.ObjectIDFromHex(c.Param("id"))
	imageID, imageErr := primitive.ObjectIDFromHex(c.Param("imageId"))
	if idErr != nil || imageErr != nil {
		s.abortWithError(c, http.StatusNotFound, "Gallery or image not found", nil)
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	g, err := s.store.UpdateImageDescription(c, id, requester(c), imageID, req.Description)
	if err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			s.abortWithError(c, http.StatusNotFound, "Gallery or image not found", err)
			return
		}
		s.abortWithError(c, http.StatusInternalServerError, "Error updating image", err)
		return
	}

	c.JSON(http.StatusOK, g)
}

// ToggleLike flips the liked state of an image
func (s *GalleryAPIServer) ToggleLike(c *gin.Context) {
	traceutils.SetHandlerTag(c, "ToggleLike")

	id, ok := s.galleryID(c)
	if !ok {
		return
	}

	imageID, err := primitive.ObjectIDFromHex(c.Param("imageId"))
	if err != nil {
		s.abortWithError(c, http.StatusNotFound, "Image not found", err)
		return
	}

	g, err := s.store.ToggleImageLike(c, id, requester(c), imageID)
	if err != nil {
		s.abortWithStoreError(c, "Error updating image like", err)
		return
	}

	c.JSON(http.StatusOK, g)
}

// SetCover replaces the cover image of a gallery. A missing coverImage clears it.
func (s *GalleryAPIServer) SetCover(c *gin.Context) {
	traceutils.SetHandlerTag(c, "SetCover")

	id, ok := s.galleryID(c)
	if !ok {
		return
	}
	owner := requester(c)

	var req struct {
		CoverImage *string `json:"coverImage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	if s.config.Gallery.StrictCover && req.CoverImage != nil {
		g, err := s.store.GetGallery(c, id, owner)
		if err != nil {
			s.abortWithStoreError(c, "Error updating gallery cover", err)
			return
		}
		if !g.HasImageURL(*req.CoverImage) {
			s.abortWithError(c, http.StatusBadRequest, "Cover image must belong to the gallery", nil)
			return
		}
	}

	g, err := s.store.SetCoverImage(c, id, owner, req.CoverImage)
	if err != nil {
		s.abortWithStoreError(c, "Error updating gallery cover", err)
		return
	}

	c.JSON(http.StatusOK, g)
}

// galleryID parses the gallery id route parameter. Malformed ids are not found.
func (s *GalleryAPIServer) galleryID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		s.abortWithError(c, http.StatusNotFound, "Gallery not found", err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func (s *GalleryAPIServer) abortWithStoreError(c *gin.Context, fallback string, err error) {
	switch {
	case errors.Is(err, gallery.ErrNotFound):
		s.abortWithError(c, http.StatusNotFound, "Gallery not found", err)
	case errors.Is(err, gallery.ErrImageNotFound):
		s.abortWithError(c, http.StatusNotFound, "Image not found", err)
	default:
		s.abortWithError(c, http.StatusInternalServerError, fallback, err)
	}
}

// uploadedFiles returns the image parts of a multipart request. Requests that
// are not multipart carry no files.
func (s *GalleryAPIServer) uploadedFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return nil, upload.ErrNoFiles
		case errors.As(err, &maxBytesErr):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", errInvalidForm, err.Error())
	}

	files := form.File[imagesField]
	if len(files) == 0 {
		return nil, upload.ErrNoFiles
	}
	return files, nil
}

func (s *GalleryAPIServer) saveFiles(c *gin.Context, files []*multipart.FileHeader) ([]upload.Stored, error) {
	stored, err := upload.SaveAll(c, s.storage, files)
	if err != nil {
		return nil, err
	}

	var size int64
	for _, f := range stored {
		size += f.Size
	}
	metrics.RecordUpload(s.metrics, s.config.Storage.Driver, len(stored), size)

	return stored, nil
}

func newImages(stored []upload.Stored, uploadedAt time.Time) []gallery.Image {
	images := make([]gallery.Image, 0, len(stored))
	for _, url := range upload.URLs(stored) {
		images = append(images, gallery.NewImage(url, uploadedAt))
	}
	return images
}
