package echoapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kelasku/kelasku/core"
	"github.com/kelasku/kelasku/core/assignment"
)

type assignmentApi struct {
	conf     *core.Config
	logger   core.Logger
	svc      assignment.ServiceInterface
	mediaSvc core.MediaService
	validate *validator.Validate
}

func registerAssignmentAPI(
	g *echo.Group,
	conf *core.Config,
	logger core.Logger,
	svc assignment.ServiceInterface,
	mediaSvc core.MediaService,
	validate *validator.Validate,
) {
	api := assignmentApi{
		conf:     conf,
		logger:   logger,
		svc:      svc,
		mediaSvc: mediaSvc,
		validate: validate,
	}

	ag := g.Group("/assignments")
	ag.POST("", api.create)
	ag.GET("", api.query)
	ag.GET("/deadline", api.queryDeadlineSoon)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.POST("/:id/submit", api.submit)
	ag.POST("/:id/submit-form", api.submitForm)
	ag.GET("/:id/submissions", api.querySubmissions)
	ag.GET("/:id/submissions/:submissionId", api.retrieveSubmission)
	ag.PUT("/:id/submissions/:submissionId/grade", api.grade)
}

type (
	createAssignmentRequest struct {
		assignment.NewAssignment
		UserID string `json:"userId"`
	}

	updateAssignmentRequest struct {
		assignment.UpdateAssignment
		UserID string `json:"userId"`
	}

	submitRequest struct {
		assignment.NewSubmission
		UserID string `json:"userId"`
	}

	gradeRequest struct {
		assignment.GradeSubmission
		UserID  string `json:"userId"`
		AdminID string `json:"adminId"`
	}

	assignmentResponse struct {
		Message    string                `json:"message"`
		Assignment assignment.Assignment `json:"assignment"`
	}

	submissionResponse struct {
		Message    string                `json:"message"`
		Submission assignment.Submission `json:"submission"`
	}

	messageResponse struct {
		Message string `json:"message"`
	}
)

// requesterID reads the acting user's ID from the query string. Both the
// userId and adminId spellings are accepted.
func requesterID(ctx echo.Context) string {
	if id := ctx.QueryParam("userId"); id != "" {
		return id
	}
	return ctx.QueryParam("adminId")
}

// Handlers

func (api *assignmentApi) create(ctx echo.Context) error {
	var data createAssignmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to createAssignmentRequest")
	}
	if err := data.NewAssignment.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), data.UserID, data.NewAssignment)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}

	return ctx.JSON(http.StatusCreated, assignmentResponse{Message: "assignment created", Assignment: a})
}

func (api *assignmentApi) query(ctx echo.Context) error {
	assignments, err := api.svc.Query(ctx.Request().Context(), requesterID(ctx))
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) queryDeadlineSoon(ctx echo.Context) error {
	assignments, err := api.svc.QueryDeadlineSoon(ctx.Request().Context(), ctx.QueryParam("userId"))
	if err != nil {
		return errors.Wrap(err, "querying upcoming deadlines")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.GetByID(ctx.Request().Context(), requesterID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	var data updateAssignmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to updateAssignmentRequest")
	}
	if err := data.UpdateAssignment.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Update(ctx.Request().Context(), data.UserID, ctx.Param("id"), data.UpdateAssignment)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}

	return ctx.JSON(http.StatusOK, assignmentResponse{Message: "assignment updated", Assignment: a})
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.QueryParam("adminId"), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "assignment deleted"})
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	var data submitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to submitRequest")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), data.UserID, data.NewSubmission)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}

	return ctx.JSON(http.StatusOK, submissionResponse{Message: "submission saved", Submission: sub})
}

func (api *assignmentApi) submitForm(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	userID := ctx.FormValue("userId")
	content := ctx.FormValue("content")

	form, err := ctx.MultipartForm()
	if err != nil {
		return errors.Wrap(err, "parsing multipart form")
	}
	// gate before paying for uploads
	if _, err = api.svc.CheckSubmission(reqCtx, ctx.Param("id"), userID); err != nil {
		return errors.Wrap(err, "checking submission")
	}

	files := form.File["files"]
	if len(files) > api.conf.Upload.MaxFiles {
		return core.NewBadRequestError(fmt.Sprintf("a maximum of %d files can be uploaded", api.conf.Upload.MaxFiles))
	}
	for _, fh := range files {
		if fh.Size > api.conf.Upload.MaxFileSize {
			return core.NewBadRequestError(fmt.Sprintf("file %q exceeds the %dMB size limit", fh.Filename, api.conf.Upload.MaxFileSize>>20))
		}
	}

	attachments, images := api.uploadFiles(ctx, files)

	sub, err := api.svc.SubmitFiles(reqCtx, ctx.Param("id"), userID, content, attachments, images)
	if err != nil {
		return errors.Wrap(err, "submitting assignment files")
	}

	return ctx.JSON(http.StatusOK, submissionResponse{Message: "submission saved", Submission: sub})
}

// uploadFiles stages each part to a temp file and pushes them to the media
// backend concurrently, partitioned into images and raw attachments by
// Content-Type. Failed uploads are logged and skipped.
func (api *assignmentApi) uploadFiles(ctx echo.Context, files []*multipart.FileHeader) (attachments, images []assignment.FileRef) {
	reqCtx := ctx.Request().Context()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, fh := range files {
		fh := fh
		wg.Add(1)
		go func() {
			defer wg.Done()

			path, err := api.stageFile(fh)
			if err != nil {
				api.logger.Error(fmt.Sprintf("staging upload %q: %v", fh.Filename, err), err)
				return
			}

			up, err := api.mediaSvc.Upload(reqCtx, path)
			if err != nil {
				api.logger.Error(fmt.Sprintf("uploading %q: %v", fh.Filename, err), err)
				return
			}
			_ = os.Remove(path)

			ref := assignment.FileRef(up)
			mu.Lock()
			if strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
				images = append(images, ref)
			} else {
				attachments = append(attachments, ref)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return attachments, images
}

func (api *assignmentApi) stageFile(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening form file")
	}
	defer src.Close()

	dst, err := os.CreateTemp(api.conf.Upload.TempDir, "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", errors.Wrap(err, "creating temp file")
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", errors.Wrap(err, "writing temp file")
	}
	return dst.Name(), nil
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	var data gradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to gradeRequest")
	}
	if err := data.GradeSubmission.Validate(api.validate); err != nil {
		return err
	}

	adminID := data.UserID
	if adminID == "" {
		adminID = data.AdminID
	}
	sub, err := api.svc.Grade(ctx.Request().Context(), adminID, ctx.Param("id"), ctx.Param("submissionId"), data.GradeSubmission)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}

	return ctx.JSON(http.StatusOK, submissionResponse{Message: "submission graded", Submission: sub})
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), ctx.QueryParam("adminId"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *assignmentApi) retrieveSubmission(ctx echo.Context) error {
	detail, err := api.svc.GetSubmissionDetail(ctx.Request().Context(), ctx.QueryParam("adminId"), ctx.Param("id"), ctx.Param("submissionId"))
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	return ctx.JSON(http.StatusOK, detail)
}
