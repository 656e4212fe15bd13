package echoapi

import (
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kelasku/kelasku/core"
)

type mediaApi struct {
	conf *core.Config
	svc  core.MediaService
}

func registerMediaAPI(g *echo.Group, conf *core.Config, svc core.MediaService) {
	api := mediaApi{conf: conf, svc: svc}

	mg := g.Group("/media")
	mg.POST("/upload", api.upload)
	mg.DELETE("/delete", api.destroy)
}

func (api *mediaApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return errFileRequired
	}
	if fh.Size > api.conf.Upload.MaxFileSize {
		return core.NewBadRequestError(fmt.Sprintf("file %q exceeds the %dMB size limit", fh.Filename, api.conf.Upload.MaxFileSize>>20))
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening form file")
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "media-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() {
		dst.Close()
		_ = os.Remove(dst.Name())
	}()
	if _, err = dst.ReadFrom(src); err != nil {
		return errors.Wrap(err, "writing temp file")
	}

	up, err := api.svc.Upload(ctx.Request().Context(), dst.Name())
	if err != nil {
		return errors.Wrap(err, "uploading media")
	}
	return ctx.JSON(http.StatusOK, up)
}

type deleteMediaRequest struct {
	PublicID     string `json:"publicId"`
	ResourceType string `json:"resourceType"`
}

func (api *mediaApi) destroy(ctx echo.Context) error {
	var data deleteMediaRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to deleteMediaRequest")
	}
	if data.PublicID == "" {
		return errPublicIDRequired
	}

	if err := api.svc.Delete(ctx.Request().Context(), data.PublicID, data.ResourceType); err != nil {
		return errors.Wrap(err, "deleting media")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "media deleted"})
}
