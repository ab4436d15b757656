package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
)

// submitFailure carries a failed submission & the wizard it left behind.
type submitFailure struct {
	err    *enrollment.SubmitError
	wizard *enrollment.Wizard
}

func (f *submitFailure) Error() string { return f.err.Error() }

type submitFailureBody struct {
	Error  string               `json:"error"`
	Kind   enrollment.ErrorKind `json:"kind"`
	Fields map[string]string    `json:"fields,omitempty"`
	Wizard *enrollment.Wizard   `json:"wizard,omitempty"`
}

// conflicts are the wizard state errors reported as 409 Conflict.
var conflicts = []error{
	enrollment.ErrSubmissionInFlight,
	enrollment.ErrAlreadySubmitted,
	enrollment.ErrNotAcknowledged,
	enrollment.ErrNotOnReview,
	enrollment.ErrBusy,
}

func isConflict(err error) bool {
	for _, c := range conflicts {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *submitFailure:
			code = http.StatusBadGateway
			if origErr.err.Kind == enrollment.ErrorValidation {
				code = http.StatusUnprocessableEntity
			}
			message = submitFailureBody{
				Error:  origErr.err.Message,
				Kind:   origErr.err.Kind,
				Fields: origErr.err.Fields,
				Wizard: origErr.wizard,
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch {
			case errors.Is(err, enrollment.ErrNotFound), errors.Is(err, enrollment.ErrEnrollmentNotFound):
				code = http.StatusNotFound
				message = errors.Cause(err).Error()
			case isConflict(err):
				code = http.StatusConflict
				message = errors.Cause(err).Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
					"method": ctx.Request().Method,
					"path":   ctx.Request().URL.Path,
				})

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError && code != http.StatusBadGateway {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
