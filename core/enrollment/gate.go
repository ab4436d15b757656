package enrollment

import (
	"context"
	"net"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-emis/core"
)

type SubmissionStatus string

const (
	SubmissionIdle       SubmissionStatus = "idle"
	SubmissionSubmitting SubmissionStatus = "submitting"
	SubmissionSubmitted  SubmissionStatus = "submitted"
	SubmissionFailed     SubmissionStatus = "failed"
)

var (
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrAlreadySubmitted   = errors.New("the enrollment was already submitted")
	ErrNotAcknowledged    = errors.New("consent and initials are required to submit")
	ErrNotOnReview        = errors.New("the review step must be reached to submit")
)

type ErrorKind string

const (
	ErrorNetwork    ErrorKind = "network"
	ErrorValidation ErrorKind = "validation"
	ErrorUnknown    ErrorKind = "unknown"
)

// SubmitError is the failure of a submission, as shown to the user.
type SubmitError struct {
	Kind    ErrorKind         `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	err     error
}

func NewSubmitError(kind ErrorKind, msg string, err error) *SubmitError {
	return &SubmitError{Kind: kind, Message: msg, err: err}
}

func (e *SubmitError) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *SubmitError) Unwrap() error { return e.err }

// ClassifySubmitError turns an Enroller error into a SubmitError.
func ClassifySubmitError(err error) *SubmitError {
	var (
		subErr  *SubmitError
		valErr  *core.ValidationError
		valErrs validator.ValidationErrors
		netErr  net.Error
	)
	switch {
	case errors.As(err, &subErr):
		return subErr
	case errors.Is(err, context.DeadlineExceeded):
		return NewSubmitError(ErrorNetwork, "the enrollment service did not respond in time", err)
	case errors.As(err, &valErr):
		se := NewSubmitError(ErrorValidation, "the enrollment was rejected", err)
		if valErr.Err != nil {
			se.Message = valErr.Err.Error()
		}
		if len(valErr.Fields) > 0 {
			se.Fields = make(map[string]string, len(valErr.Fields))
			for _, f := range valErr.Fields {
				se.Fields[f.Field] = f.Error
			}
		}
		return se
	case errors.As(err, &valErrs):
		se := NewSubmitError(ErrorValidation, "the enrollment was rejected", err)
		se.Fields = make(map[string]string, len(valErrs))
		for _, fe := range valErrs {
			se.Fields[fe.Namespace()] = fe.Tag()
		}
		return se
	case errors.As(err, &netErr):
		return NewSubmitError(ErrorNetwork, "the enrollment service is unreachable", err)
	default:
		return NewSubmitError(ErrorUnknown, "an unexpected error occurred", err)
	}
}

// Gate guards the final submission: it requires consent & initials and allows one submission at a time.
type Gate struct {
	Status         SubmissionStatus `json:"status"`
	ConsentChecked bool             `json:"consent_checked"`
	Initials       string           `json:"initials"`
	Error          *SubmitError     `json:"error,omitempty"`
	Attempts       int              `json:"attempts"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
}

func NewGate() Gate {
	return Gate{Status: SubmissionIdle}
}

func (g Gate) locked() error {
	switch g.Status {
	case SubmissionSubmitting:
		return ErrSubmissionInFlight
	case SubmissionSubmitted:
		return ErrAlreadySubmitted
	}
	return nil
}

func (g *Gate) Acknowledge(consentChecked bool, initials string) error {
	if err := g.locked(); err != nil {
		return err
	}
	g.ConsentChecked = consentChecked
	g.Initials = core.CleanString(initials)
	return nil
}

// Ready reports whether the review step is valid.
func (g Gate) Ready() bool {
	return ValidReview(g.ConsentChecked, g.Initials)
}

func (g Gate) CanSubmit() bool {
	return g.Ready() && g.locked() == nil
}

// Begin moves to `submitting`, from `idle` or `failed` only.
func (g *Gate) Begin(now time.Time) error {
	if err := g.locked(); err != nil {
		return err
	}
	if !g.Ready() {
		return ErrNotAcknowledged
	}
	g.Status = SubmissionSubmitting
	g.Error = nil
	g.Attempts++
	g.StartedAt = &now
	return nil
}

func (g *Gate) Succeed() {
	g.Status = SubmissionSubmitted
	g.Error = nil
	g.StartedAt = nil
}

// Fail records the error & re-enables the submission.
func (g *Gate) Fail(err *SubmitError) {
	g.Status = SubmissionFailed
	g.Error = err
	g.StartedAt = nil
}
