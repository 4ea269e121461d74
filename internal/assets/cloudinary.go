package assets

import (
	"context"
	"errors"
	"fmt"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUploadFailed = errors.New("image upload failed")

// Store keeps product images in Cloudinary
type Store struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger *zap.Logger
}

func NewStore(cloudName, apiKey, apiSecret, folder string) (*Store, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Store{cld: cld, folder: folder, logger: util.GetLogger()}, nil
}

func newPublicID() string {
	return "image-" + uuid.New().String()
}

// UploadImage stores an image given as a data URI or remote URL
func (s *Store) UploadImage(ctx context.Context, image string) (*models.UploadedImage, error) {
	ctx, span := util.StartSpan(ctx, "assets.UploadImage")
	defer span.End()

	resp, err := s.cld.Upload.Upload(ctx, image, uploader.UploadParams{
		PublicID:     newPublicID(),
		Folder:       s.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrUploadFailed, resp.Error.Message)
	}

	s.logger.Info("Image uploaded", zap.String("public_id", resp.PublicID))
	return &models.UploadedImage{
		AssetID:   resp.AssetID,
		PublicID:  resp.PublicID,
		URL:       resp.URL,
		SecureURL: resp.SecureURL,
	}, nil
}

// Destroy removes an image by its public id
func (s *Store) Destroy(ctx context.Context, publicID string) error {
	ctx, span := util.StartSpan(ctx, "assets.Destroy")
	defer span.End()

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to destroy image %s: %w", publicID, err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("failed to destroy image %s: %s", publicID, resp.Error.Message)
	}
	return nil
}
