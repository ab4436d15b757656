package enrollment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-emis/core/wizard"
)

// Wizard is one enrollment flow: its position in the steps, the aggregated form data & the submission gate.
// A Wizard is not safe for concurrent use; Service serializes the operations on a wizard.
type Wizard struct {
	ID        string
	Data      FormData
	Gate      Gate
	Strict    bool      // re-validate completed steps after each patch
	CreatedAt time.Time // UTC
	UpdatedAt time.Time // UTC

	machine *wizard.Machine
}

// Snapshot is the persisted form of a Wizard.
type Snapshot struct {
	ID        string       `json:"id"`
	State     wizard.State `json:"state"`
	Data      FormData     `json:"data"`
	Gate      Gate         `json:"gate"`
	Strict    bool         `json:"strict"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func NewWizard(now time.Time, strict bool) *Wizard {
	now = now.UTC()
	return &Wizard{
		ID:        uuid.NewString(),
		Data:      NewFormData(now),
		Gate:      NewGate(),
		Strict:    strict,
		CreatedAt: now,
		UpdatedAt: now,
		machine:   wizard.New(Steps),
	}
}

func RestoreWizard(s Snapshot) *Wizard {
	return &Wizard{
		ID:        s.ID,
		Data:      s.Data,
		Gate:      s.Gate,
		Strict:    s.Strict,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		machine:   wizard.Restore(Steps, s.State),
	}
}

func (w *Wizard) Snapshot() Snapshot {
	return Snapshot{
		ID:        w.ID,
		State:     w.machine.State(),
		Data:      w.Data,
		Gate:      w.Gate,
		Strict:    w.Strict,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func (w *Wizard) Current() int             { return w.machine.Current() }
func (w *Wizard) CurrentStep() wizard.Step { return w.machine.CurrentStep() }
func (w *Wizard) Completed() []int         { return w.machine.Completed() }
func (w *Wizard) IsCompleted(i int) bool   { return w.machine.IsCompleted(i) }

// StepValid evaluates the validator of step i against the current data.
func (w *Wizard) StepValid(i int) bool {
	switch i {
	case StepStudentInformation:
		return ValidStudentInformation(w.Data)
	case StepContactDetails:
		return ValidContactDetails(w.Data)
	case StepAcademics:
		return ValidAcademics(w.Data)
	case StepReview:
		return w.Gate.Ready()
	default:
		return false
	}
}

// CanAdvance reports whether Next would move forward.
func (w *Wizard) CanAdvance() bool {
	return !w.machine.IsLast() && w.StepValid(w.machine.Current())
}

func (w *Wizard) CanGoBack() bool {
	return !w.machine.IsFirst()
}

// CanSubmit reports whether the submit control is enabled.
func (w *Wizard) CanSubmit() bool {
	return w.machine.IsLast() && w.Gate.CanSubmit()
}

// Apply merges a patch into the form data. Edits are refused while a submission is pending or done.
func (w *Wizard) Apply(p FormPatch) error {
	if err := w.Gate.locked(); err != nil {
		return err
	}
	w.Data.Apply(p)
	if w.Strict {
		w.machine.Revalidate(w.StepValid)
	}
	return nil
}

// Next marks the current step complete & moves forward when the step is valid. Otherwise it is a no-op.
func (w *Wizard) Next() bool {
	if !w.CanAdvance() {
		return false
	}
	return w.machine.Advance(true)
}

// Prev is always allowed, no-op on the first step.
func (w *Wizard) Prev() bool {
	return w.machine.PrevStep()
}

// JumpTo goes to a completed step; any other request is ignored.
func (w *Wizard) JumpTo(i int) bool {
	return w.machine.JumpTo(i)
}

func (w *Wizard) Acknowledge(consentChecked bool, initials string) error {
	return w.Gate.Acknowledge(consentChecked, initials)
}

// BeginSubmission moves the gate to `submitting`; the wizard must be on the review step.
func (w *Wizard) BeginSubmission(now time.Time) error {
	if err := w.Gate.locked(); err != nil {
		return err
	}
	if !w.machine.IsLast() {
		return ErrNotOnReview
	}
	return w.Gate.Begin(now)
}

func (w *Wizard) Tuition() Tuition {
	return ComputeTuition(w.Data.Grade, w.Data.TuitionOption)
}

type (
	StepView struct {
		wizard.Step
		Index     int  `json:"index"`
		Current   bool `json:"current"`
		Completed bool `json:"completed"`
		Valid     bool `json:"valid"`
	}

	SubmissionView struct {
		Gate
		CanSubmit bool `json:"can_submit"`
	}

	// View is the JSON representation of a Wizard.
	View struct {
		ID             string         `json:"id"`
		Steps          []StepView     `json:"steps"`
		CurrentStep    int            `json:"current_step"`
		CompletedSteps []int          `json:"completed_steps"`
		CanAdvance     bool           `json:"can_advance"`
		CanGoBack      bool           `json:"can_go_back"`
		Data           FormData       `json:"data"`
		Tuition        Tuition        `json:"tuition"`
		Submission     SubmissionView `json:"submission"`
		CreatedAt      time.Time      `json:"created_at"`
		UpdatedAt      time.Time      `json:"updated_at"`
	}
)

func (w *Wizard) View() View {
	steps := Steps.Steps()
	views := make([]StepView, len(steps))
	for i, s := range steps {
		views[i] = StepView{
			Step:      s,
			Index:     i,
			Current:   i == w.machine.Current(),
			Completed: w.machine.IsCompleted(i),
			Valid:     w.StepValid(i),
		}
	}
	return View{
		ID:             w.ID,
		Steps:          views,
		CurrentStep:    w.machine.Current(),
		CompletedSteps: w.machine.Completed(),
		CanAdvance:     w.CanAdvance(),
		CanGoBack:      w.CanGoBack(),
		Data:           w.Data,
		Tuition:        w.Tuition(),
		Submission:     SubmissionView{Gate: w.Gate, CanSubmit: w.CanSubmit()},
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

func (w *Wizard) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.View())
}
