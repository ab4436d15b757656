package backendsvc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
)

const (
	studentsPath    = "/students"
	enrollmentsPath = "/enrollments"

	idempotencyHeader = "Idempotency-Key"
)

type (
	// Client submits the enrollments to the remote EMIS backend.
	Client struct {
		http   *resty.Client
		logger core.Logger
	}

	studentResponse struct {
		ID string `json:"id"`
	}

	enrollmentResponse struct {
		ID        string                      `json:"id"`
		StudentID string                      `json:"studentId"`
		Status    enrollment.EnrollmentStatus `json:"status"`
		CreatedAt time.Time                   `json:"createdAt"`
	}

	// errorResponse is the error body of the backend; Errors maps the invalid fields to their messages.
	errorResponse struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
)

var _ enrollment.Enroller = (*Client)(nil) // interface compliance check

func NewClient(conf *core.Config, logger core.Logger) *Client {
	c := resty.New().
		SetBaseURL(conf.Enrollment.BackendURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", conf.AppName+"/"+conf.Build)
	if conf.Enrollment.BackendToken != "" {
		c.SetAuthToken(conf.Enrollment.BackendToken)
	}
	return &Client{http: c, logger: logger}
}

// Enroll creates the student then its enrollment.
// Both requests carry the wizard reference, so a retry after a partial failure reuses the student created first.
func (c *Client) Enroll(ctx context.Context, req enrollment.EnrollmentRequest) (enrollment.Receipt, error) {
	var student studentResponse
	if err := c.post(ctx, studentsPath, req.Student.Reference, req.Student, &student); err != nil {
		return enrollment.Receipt{}, err
	}

	enrReq := req.Enrollment
	enrReq.StudentID = student.ID
	var enr enrollmentResponse
	if err := c.post(ctx, enrollmentsPath, enrReq.Reference, enrReq, &enr); err != nil {
		return enrollment.Receipt{}, err
	}

	receipt := enrollment.Receipt{
		EnrollmentID: enr.ID,
		StudentID:    enr.StudentID,
		Status:       enr.Status,
		SubmittedAt:  enr.CreatedAt.UTC(),
	}
	if receipt.StudentID == "" {
		receipt.StudentID = student.ID
	}
	if receipt.Status == "" {
		receipt.Status = enrReq.Status
	}
	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = time.Now().UTC()
	}
	return receipt, nil
}

func (c *Client) post(ctx context.Context, path, reference string, body, result interface{}) error {
	var errBody errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(idempotencyHeader, path+":"+reference).
		SetBody(body).
		SetResult(result).
		SetError(&errBody).
		Post(path)
	if err != nil {
		// transport errors & deadlines are classified by the caller
		return errors.Wrapf(err, "POST %s", path)
	}
	if !resp.IsError() {
		return nil
	}

	c.logger.Warn(fmt.Sprintf("POST %s - status: %d - body: %s", path, resp.StatusCode(), resp.String()))
	return statusError(resp.StatusCode(), errBody)
}

// statusError maps an error response: 4xx are validation failures, gateway errors are network failures.
func statusError(status int, body errorResponse) *enrollment.SubmitError {
	switch {
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		msg := body.Message
		if msg == "" {
			msg = "the enrollment was rejected"
		}
		se := enrollment.NewSubmitError(enrollment.ErrorValidation, msg, nil)
		if len(body.Errors) > 0 {
			se.Fields = body.Errors
		}
		return se
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return enrollment.NewSubmitError(
			enrollment.ErrorNetwork,
			"the enrollment service is unavailable",
			errors.Errorf("status %d", status),
		)
	default:
		return enrollment.NewSubmitError(
			enrollment.ErrorUnknown,
			"an unexpected error occurred",
			errors.Errorf("status %d: %s", status, body.Message),
		)
	}
}
