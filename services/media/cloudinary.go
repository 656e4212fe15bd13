package mediasvc

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"

	"github.com/kelasku/kelasku/core"
)

type cloudinaryService struct {
	cld    *cloudinary.Cloudinary
	logger core.Logger
}

var _ core.MediaService = (*cloudinaryService)(nil)

func NewCloudinaryService(conf *core.Config, logger core.Logger) (*cloudinaryService, error) {
	cld, err := cloudinary.NewFromURL(conf.Media.CloudinaryURL)
	if err != nil {
		return nil, errors.Wrap(err, "configuring cloudinary")
	}
	return &cloudinaryService{cld: cld, logger: logger}, nil
}

func (svc cloudinaryService) Upload(ctx context.Context, path string) (core.MediaUpload, error) {
	res, err := svc.cld.Upload.Upload(ctx, path, uploader.UploadParams{ResourceType: "auto"})
	if err != nil {
		return core.MediaUpload{}, errors.Wrap(err, "uploading media")
	}
	return core.MediaUpload{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		Format:       res.Format,
		ResourceType: res.ResourceType,
	}, nil
}

func (svc cloudinaryService) Delete(ctx context.Context, publicID, resourceType string) error {
	if resourceType == "" {
		resourceType = "image"
	}
	res, err := svc.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: resourceType})
	if err != nil {
		return errors.Wrap(err, "deleting media")
	}
	if res.Result != "ok" && res.Result != "not found" {
		return errors.New(fmt.Sprintf("deleting media: %s", res.Result))
	}
	return nil
}
