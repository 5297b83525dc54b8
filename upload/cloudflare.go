package upload

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"

	"github.com/bitmark-inc/client-gallery/log"
)

const cloudflareDeliveryURL = "https://imagedelivery.net/%s/%s/public"

type cloudflareImagesAPI interface {
	UploadImage(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UploadImageParams) (cloudflare.Image, error)
	DeleteImage(ctx context.Context, rc *cloudflare.ResourceContainer, id string) error
}

// CloudflareStorage uploads files to Cloudflare Images and returns their public delivery URL
type CloudflareStorage struct {
	api         cloudflareImagesAPI
	accountID   string
	accountHash string
}

func NewCloudflareStorage(accountID, accountHash, apiToken string) (*CloudflareStorage, error) {
	api, err := cloudflare.NewWithAPIToken(apiToken)
	if err != nil {
		return nil, err
	}

	return &CloudflareStorage{
		api:         api,
		accountID:   accountID,
		accountHash: accountHash,
	}, nil
}

func (s *CloudflareStorage) Save(ctx context.Context, name string, r io.Reader, _ int64, contentType string) (string, error) {
	image, err := s.api.UploadImage(ctx, cloudflare.AccountIdentifier(s.accountID), cloudflare.UploadImageParams{
		File: io.NopCloser(r),
		Name: name,
		Metadata: map[string]interface{}{
			"mime_type": contentType,
		},
	})
	if err != nil {
		return "", err
	}

	log.Debug("image uploaded to cloudflare", log.SourceStorage,
		zap.String("name", name), zap.String("imageID", image.ID))

	return fmt.Sprintf(cloudflareDeliveryURL, s.accountHash, image.ID), nil
}

func (s *CloudflareStorage) Delete(ctx context.Context, url string) error {
	id := s.imageIDFromURL(url)
	if id == "" {
		return fmt.Errorf("url %q is not a cloudflare image of this account", url)
	}

	return s.api.DeleteImage(ctx, cloudflare.AccountIdentifier(s.accountID), id)
}

// imageIDFromURL extracts the image id from a delivery URL of this account
func (s *CloudflareStorage) imageIDFromURL(url string) string {
	prefix := fmt.Sprintf("https://imagedelivery.net/%s/", s.accountHash)
	if !strings.HasPrefix(url, prefix) {
		return ""
	}

	id, _, _ := strings.Cut(strings.TrimPrefix(url, prefix), "/")
	return id
}
