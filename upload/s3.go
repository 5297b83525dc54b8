package upload

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"go.uber.org/zap"

	"github.com/bitmark-inc/client-gallery/log"
)

// S3Storage uploads files into a bucket. Objects are served from the upload
// location unless a public base URL is configured.
type S3Storage struct {
	uploader  s3manageriface.UploaderAPI
	client    s3iface.S3API
	bucket    string
	publicURL string
}

func NewS3Storage(awsSession *session.Session, bucket, publicURL string) *S3Storage {
	return newS3Storage(s3manager.NewUploader(awsSession), s3.New(awsSession), bucket, publicURL)
}

func newS3Storage(uploader s3manageriface.UploaderAPI, client s3iface.S3API, bucket, publicURL string) *S3Storage {
	return &S3Storage{
		uploader:  uploader,
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *S3Storage) Save(ctx context.Context, name string, r io.Reader, _ int64, contentType string) (string, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Body:        r,
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	log.Debug("file uploaded to s3", log.SourceStorage,
		zap.String("bucket", s.bucket), zap.String("key", name))

	if s.publicURL != "" {
		return s.publicURL + "/" + name, nil
	}
	return out.Location, nil
}

func (s *S3Storage) Delete(ctx context.Context, fileURL string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(fileURL)),
	})
	return err
}

// objectKey returns the last path element of an object URL
func objectKey(fileURL string) string {
	if u, err := url.Parse(fileURL); err == nil {
		return path.Base(u.Path)
	}
	return path.Base(fileURL)
}
