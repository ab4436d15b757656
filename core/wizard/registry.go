// Package wizard implements a linear multi-step flow: an immutable ordered step registry
// and the state machine navigating it.
package wizard

import (
	"github.com/kat-co/vala"

	"github.com/trezcool/masomo-emis/core"
)

type Step struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Registry is the ordered, read-only list of a wizard's steps.
type Registry struct {
	steps []Step
	index map[string]int
}

func NewRegistry(steps ...Step) (*Registry, error) {
	if err := vala.BeginValidation().Validate(
		vala.GreaterThan(len(steps), 0, "steps"),
	).Check(); err != nil {
		return nil, core.NewArgumentError(err.Error())
	}

	reg := &Registry{
		steps: make([]Step, len(steps)),
		index: make(map[string]int, len(steps)),
	}
	for i, s := range steps {
		if err := vala.BeginValidation().Validate(
			vala.StringNotEmpty(s.ID, "step.ID"),
			vala.StringNotEmpty(s.Title, "step.Title"),
		).Check(); err != nil {
			return nil, core.NewArgumentError(err.Error())
		}
		if _, dup := reg.index[s.ID]; dup {
			return nil, core.NewArgumentError("duplicate step ID: " + s.ID)
		}
		reg.steps[i] = s
		reg.index[s.ID] = i
	}
	return reg, nil
}

// MustRegistry is like NewRegistry but panics on invalid steps. Meant for package level registries.
func MustRegistry(steps ...Step) *Registry {
	reg, err := NewRegistry(steps...)
	if err != nil {
		panic(err)
	}
	return reg
}

func (r *Registry) Len() int { return len(r.steps) }

func (r *Registry) Step(i int) (Step, bool) {
	if i < 0 || i >= len(r.steps) {
		return Step{}, false
	}
	return r.steps[i], true
}

func (r *Registry) Index(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Steps returns a copy of the registered steps.
func (r *Registry) Steps() []Step {
	steps := make([]Step, len(r.steps))
	copy(steps, r.steps)
	return steps
}
