package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-emis/core"
)

const (
	// lockTTL bounds how long a crashed operation can keep a wizard locked.
	lockTTL = 10 * time.Second
	// submitLockMargin is added to the submit timeout for the submission lock.
	submitLockMargin = 5 * time.Second
)

var (
	// errors
	ErrNotFound           = errors.New("enrollment wizard not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrLocked             = errors.New("enrollment wizard is locked")
	ErrBusy               = errors.New("the enrollment wizard is being updated, try again")
)

type (
	// SessionStore persists the wizards between requests.
	SessionStore interface {
		Save(ctx context.Context, snap Snapshot) error
		// Load returns ErrNotFound for unknown or expired wizards.
		Load(ctx context.Context, id string) (Snapshot, error)
		Delete(ctx context.Context, id string) error
		// Lock acquires the exclusive lock of a wizard without waiting; it returns ErrLocked if it is held.
		// The lock is released by unlock or after ttl.
		Lock(ctx context.Context, id string, ttl time.Duration) (unlock func(), err error)
		// Sweep deletes the wizards not updated since `before` and returns how many were deleted.
		Sweep(ctx context.Context, before time.Time) (int, error)
	}

	// Enroller is the "create enrollment" operation a submission hands the form data to.
	Enroller interface {
		Enroll(ctx context.Context, req EnrollmentRequest) (Receipt, error)
	}

	// Recorder observes the wizards' lifecycle.
	Recorder interface {
		WizardStarted()
		StepChanged(from, to string)
		SubmissionFinished(status SubmissionStatus, kind ErrorKind, took time.Duration)
		WizardsSwept(n int)
	}

	Service struct {
		store    SessionStore
		enroller Enroller
		recorder Recorder
		logger   core.Logger
		conf     core.EnrollmentConfig
		now      func() time.Time
	}
)

func NewService(store SessionStore, enroller Enroller, recorder Recorder, logger core.Logger, conf *core.Config) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		store:    store,
		enroller: enroller,
		recorder: recorder,
		logger:   logger,
		conf:     conf.Enrollment,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) Start(ctx context.Context) (*Wizard, error) {
	w := NewWizard(svc.now(), svc.conf.StrictCompletion)
	if err := svc.store.Save(ctx, w.Snapshot()); err != nil {
		return nil, errors.Wrap(err, "saving wizard")
	}
	svc.recorder.WizardStarted()
	return w, nil
}

func (svc *Service) Get(ctx context.Context, id string) (*Wizard, error) {
	snap, err := svc.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return RestoreWizard(snap), nil
}

// mutate runs fn on the wizard under its lock & saves it.
func (svc *Service) mutate(ctx context.Context, id string, fn func(w *Wizard) error) (*Wizard, error) {
	unlock, err := svc.store.Lock(ctx, id, lockTTL)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return nil, ErrBusy
		}
		return nil, errors.Wrap(err, "locking wizard")
	}
	defer unlock()

	w, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return w, err
	}
	w.UpdatedAt = svc.now()
	if err := svc.store.Save(ctx, w.Snapshot()); err != nil {
		return nil, errors.Wrap(err, "saving wizard")
	}
	return w, nil
}

// navigate records the step change made by move.
func (svc *Service) navigate(ctx context.Context, id string, move func(w *Wizard) bool) (*Wizard, error) {
	return svc.mutate(ctx, id, func(w *Wizard) error {
		from := w.CurrentStep().ID
		if move(w) && w.CurrentStep().ID != from {
			svc.recorder.StepChanged(from, w.CurrentStep().ID)
		}
		return nil
	})
}

// Update merges the patch into the wizard's form data.
func (svc *Service) Update(ctx context.Context, id string, patch FormPatch) (*Wizard, error) {
	return svc.mutate(ctx, id, func(w *Wizard) error {
		return w.Apply(patch)
	})
}

// Next moves forward if the current step is valid; the wizard is returned unchanged otherwise.
func (svc *Service) Next(ctx context.Context, id string) (*Wizard, error) {
	return svc.navigate(ctx, id, (*Wizard).Next)
}

func (svc *Service) Previous(ctx context.Context, id string) (*Wizard, error) {
	return svc.navigate(ctx, id, (*Wizard).Prev)
}

// JumpTo moves to a completed step; other indices are ignored.
func (svc *Service) JumpTo(ctx context.Context, id string, index int) (*Wizard, error) {
	return svc.navigate(ctx, id, func(w *Wizard) bool { return w.JumpTo(index) })
}

func (svc *Service) Acknowledge(ctx context.Context, id string, consentChecked bool, initials string) (*Wizard, error) {
	return svc.mutate(ctx, id, func(w *Wizard) error {
		return w.Acknowledge(consentChecked, initials)
	})
}

// Submit hands the form data to the Enroller. At most one submission per wizard is in flight.
// On failure the returned error is a *SubmitError & the wizard can be submitted again.
// On success the wizard is closed.
func (svc *Service) Submit(ctx context.Context, id string) (Receipt, *Wizard, error) {
	unlock, err := svc.store.Lock(ctx, id, svc.conf.SubmitTimeout+submitLockMargin)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return Receipt{}, nil, svc.lockHolderError(ctx, id)
		}
		return Receipt{}, nil, errors.Wrap(err, "locking wizard")
	}
	defer unlock()

	w, err := svc.Get(ctx, id)
	if err != nil {
		return Receipt{}, nil, err
	}
	if w.Gate.Status == SubmissionSubmitting {
		// the lock is free: the previous attempt never finished
		w.Gate.Fail(NewSubmitError(ErrorUnknown, "the previous submission did not complete", nil))
	}
	if err := w.BeginSubmission(svc.now()); err != nil {
		return Receipt{}, w, err
	}
	w.UpdatedAt = svc.now()
	if err := svc.store.Save(ctx, w.Snapshot()); err != nil {
		return Receipt{}, nil, errors.Wrap(err, "saving wizard")
	}

	start := time.Now()
	req := NewEnrollmentRequest(w, svc.conf.SchoolID, svc.conf.AcademicYearID)
	subCtx, cancel := context.WithTimeout(ctx, svc.conf.SubmitTimeout)
	receipt, err := svc.enroller.Enroll(subCtx, req)
	cancel()

	// the outcome is saved even if the client went away
	saveCtx := context.WithoutCancel(ctx)
	w.UpdatedAt = svc.now()

	if err != nil {
		subErr := ClassifySubmitError(err)
		w.Gate.Fail(subErr)
		svc.recorder.SubmissionFinished(SubmissionFailed, subErr.Kind, time.Since(start))
		if subErr.Kind == ErrorValidation {
			svc.logger.Info("enrollment rejected", err, w)
		} else {
			svc.logger.Error("submitting enrollment", err, w)
		}
		if err := svc.store.Save(saveCtx, w.Snapshot()); err != nil {
			svc.logger.Error("saving failed submission", err, w)
		}
		return Receipt{}, w, subErr
	}

	w.Gate.Succeed()
	svc.recorder.SubmissionFinished(SubmissionSubmitted, "", time.Since(start))
	if err := svc.store.Delete(saveCtx, id); err != nil {
		svc.logger.Error("closing submitted wizard", err, w)
	}
	return receipt, w, nil
}

// lockHolderError tells a submission in flight from another operation holding the wizard's lock.
func (svc *Service) lockHolderError(ctx context.Context, id string) error {
	snap, err := svc.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if snap.Gate.Status == SubmissionSubmitting {
		return ErrSubmissionInFlight
	}
	return ErrBusy
}

// Close discards a wizard. A wizard being submitted cannot be closed.
func (svc *Service) Close(ctx context.Context, id string) error {
	unlock, err := svc.store.Lock(ctx, id, lockTTL)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return svc.lockHolderError(ctx, id)
		}
		return errors.Wrap(err, "locking wizard")
	}
	defer unlock()

	if _, err := svc.store.Load(ctx, id); err != nil {
		return err
	}
	return svc.store.Delete(ctx, id)
}

// Sweep discards the wizards idle for longer than the session TTL.
func (svc *Service) Sweep(ctx context.Context) (int, error) {
	n, err := svc.store.Sweep(ctx, svc.now().Add(-svc.conf.SessionTTL))
	if err != nil {
		return n, errors.Wrap(err, "sweeping wizards")
	}
	if n > 0 {
		svc.recorder.WizardsSwept(n)
	}
	return n, nil
}

type nopRecorder struct{}

func (nopRecorder) WizardStarted()                                                {}
func (nopRecorder) StepChanged(string, string)                                    {}
func (nopRecorder) SubmissionFinished(SubmissionStatus, ErrorKind, time.Duration) {}
func (nopRecorder) WizardsSwept(int)                                              {}
