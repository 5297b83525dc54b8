package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/log"
)

var (
	ErrNoFiles         = errors.New("at least one image is required")
	ErrTooManyFiles    = fmt.Errorf("too many files, at most %d are allowed", gallery.MaxFilesPerRequest)
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("only images are allowed")
)

var allowedTypes = regexp.MustCompile(`(?i)jpeg|jpg|png`)

// sniffLength is the number of leading bytes inspected to detect the content type
const sniffLength = 512

// Storage persists uploaded files and returns the URL they are served from
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Stored describes a file written to a storage
type Stored struct {
	URL         string
	Size        int64
	ContentType string
}

// ObjectName returns a collision free name for an uploaded file that keeps its extension.
func ObjectName(filename string, now time.Time) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
}

// Validate checks the size, extension, declared type and content of an uploaded
// file and returns the detected content type.
func Validate(file *multipart.FileHeader) (string, error) {
	if file.Size > gallery.MaxFileSize {
		return "", fmt.Errorf("%w: %s", ErrFileTooLarge, file.Filename)
	}

	if !allowedTypes.MatchString(filepath.Ext(file.Filename)) ||
		!allowedTypes.MatchString(file.Header.Get("Content-Type")) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, file.Filename)
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileHeader := make([]byte, sniffLength)
	n, err := io.ReadFull(f, fileHeader)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	mimeType := mimetype.Detect(fileHeader[:n]).String()
	if !strings.HasPrefix(mimeType, "image/") || !allowedTypes.MatchString(mimeType) {
		return "", fmt.Errorf("%w: %s is %s", ErrUnsupportedType, file.Filename, mimeType)
	}

	return mimeType, nil
}

// SaveAll validates every file and then writes them to the storage. Either all
// files are stored or, on failure, the ones written by this call are removed again.
func SaveAll(ctx context.Context, storage Storage, files []*multipart.FileHeader) ([]Stored, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if len(files) > gallery.MaxFilesPerRequest {
		return nil, ErrTooManyFiles
	}

	contentTypes := make([]string, len(files))
	for i, file := range files {
		contentType, err := Validate(file)
		if err != nil {
			return nil, err
		}
		contentTypes[i] = contentType
	}

	stored := make([]Stored, 0, len(files))
	for i, file := range files {
		url, err := save(ctx, storage, file, contentTypes[i])
		if err != nil {
			log.Error("fail to store uploaded file", log.SourceStorage,
				zap.String("filename", file.Filename), zap.Error(err))
			Remove(ctx, storage, stored)
			return nil, err
		}

		stored = append(stored, Stored{
			URL:         url,
			Size:        file.Size,
			ContentType: contentTypes[i],
		})
	}

	return stored, nil
}

func save(ctx context.Context, storage Storage, file *multipart.FileHeader, contentType string) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	return storage.Save(ctx, ObjectName(file.Filename, time.Now()), f, file.Size, contentType)
}

// Remove deletes stored files. Failures are logged and skipped.
func Remove(ctx context.Context, storage Storage, stored []Stored) {
	for _, s := range stored {
		if err := storage.Delete(context.WithoutCancel(ctx), s.URL); err != nil {
			log.Warn("fail to remove stored file", log.SourceStorage,
				zap.String("url", s.URL), zap.Error(err))
		}
	}
}

// URLs returns the URLs of stored files in order
func URLs(stored []Stored) []string {
	urls := make([]string, 0, len(stored))
	for _, s := range stored {
		urls = append(urls, s.URL)
	}
	return urls
}
