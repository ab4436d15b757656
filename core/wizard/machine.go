package wizard

import "sort"

// State is the serializable position of a Machine.
type State struct {
	Current   int   `json:"current"`
	Completed []int `json:"completed"` // sorted
}

// Machine tracks the current step & the set of completed steps.
// The current index is always a valid registry index; invalid requests are ignored.
// A Machine is not safe for concurrent use.
type Machine struct {
	reg       *Registry
	current   int
	completed map[int]struct{}
}

func New(reg *Registry) *Machine {
	return &Machine{reg: reg, completed: make(map[int]struct{})}
}

// Restore rebuilds a Machine from a saved State, dropping anything out of range.
func Restore(reg *Registry, st State) *Machine {
	m := New(reg)
	m.GoToStep(st.Current)
	for _, i := range st.Completed {
		m.MarkStepComplete(i)
	}
	return m
}

func (m *Machine) Registry() *Registry { return m.reg }

func (m *Machine) Current() int { return m.current }

func (m *Machine) CurrentStep() Step {
	s, _ := m.reg.Step(m.current)
	return s
}

func (m *Machine) IsFirst() bool { return m.current == 0 }
func (m *Machine) IsLast() bool  { return m.current == m.reg.Len()-1 }

func (m *Machine) valid(i int) bool {
	return i >= 0 && i < m.reg.Len()
}

// GoToStep moves to step i. Out of range requests are ignored and return false.
func (m *Machine) GoToStep(i int) bool {
	if !m.valid(i) {
		return false
	}
	m.current = i
	return true
}

// NextStep is a no-op on the last step.
func (m *Machine) NextStep() bool {
	return m.GoToStep(m.current + 1)
}

// PrevStep is a no-op on the first step.
func (m *Machine) PrevStep() bool {
	return m.GoToStep(m.current - 1)
}

func (m *Machine) MarkStepComplete(i int) {
	if m.valid(i) {
		m.completed[i] = struct{}{}
	}
}

func (m *Machine) IsCompleted(i int) bool {
	_, ok := m.completed[i]
	return ok
}

// Advance leaves the current step forward: it marks it complete then moves to the next one.
// Nothing happens unless the current step is valid.
func (m *Machine) Advance(valid bool) bool {
	if !valid {
		return false
	}
	m.MarkStepComplete(m.current)
	return m.NextStep()
}

// JumpTo moves directly to a completed step (or stays on the current one),
// whatever the validity of the current step.
func (m *Machine) JumpTo(i int) bool {
	if i != m.current && !m.IsCompleted(i) {
		return false
	}
	return m.GoToStep(i)
}

// Revalidate strips the completion marks of the steps failing `valid` and returns their indices.
func (m *Machine) Revalidate(valid func(i int) bool) []int {
	var stripped []int
	for _, i := range m.Completed() {
		if !valid(i) {
			delete(m.completed, i)
			stripped = append(stripped, i)
		}
	}
	return stripped
}

// Completed returns the completed step indices in ascending order.
func (m *Machine) Completed() []int {
	idxs := make([]int, 0, len(m.completed))
	for i := range m.completed {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

func (m *Machine) State() State {
	return State{Current: m.current, Completed: m.Completed()}
}
