package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kelasku/kelasku/core"
)

var (
	errFileRequired     = core.NewBadRequestError("a file is required")
	errPublicIDRequired = core.NewBadRequestError("publicId is required")
)

type errorResponse struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var resp errorResponse

		switch origErr := errors.Cause(err).(type) {
		case *core.Error:
			code = origErr.Status
			resp = errorResponse{Message: origErr.Message, Code: origErr.Code}
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				resp = errorResponse{Message: msg, Code: core.CodeBadRequest}
			} else {
				resp = errorResponse{Message: http.StatusText(code), Code: core.CodeBadRequest}
			}
			if code >= http.StatusInternalServerError {
				resp.Code = core.CodeServerError
			} else if code == http.StatusNotFound {
				resp.Code = core.CodeNotFound
			}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			resp = errorResponse{Message: "invalid input", Code: core.CodeBadRequest, Fields: fldErrs}
		case *core.ValidationError:
			code = http.StatusBadRequest
			msg := origErr.Error()
			if msg == "" {
				msg = "invalid input"
			}
			resp = errorResponse{Message: msg, Code: core.CodeBadRequest}
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				resp.Fields = fldErrs
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			resp = errorResponse{Message: msg, Code: core.CodeServerError}

			logger.Error(msg, errors.Wrap(err, msg))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && resp.Code == core.CodeServerError {
			resp.Message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
