package wizard

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-emis/core"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(
		Step{ID: "one", Title: "One"},
		Step{ID: "two", Title: "Two"},
		Step{ID: "three", Title: "Three"},
		Step{ID: "four", Title: "Four"},
	)
	require.NoError(t, err)
	return reg
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		wantErr bool
	}{
		{"no steps", nil, true},
		{"empty id", []Step{{Title: "One"}}, true},
		{"empty title", []Step{{ID: "one"}}, true},
		{"duplicate id", []Step{{ID: "one", Title: "One"}, {ID: "one", Title: "Uno"}}, true},
		{"valid", []Step{{ID: "one", Title: "One"}, {ID: "two", Title: "Two"}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg, err := NewRegistry(tc.steps...)
			if tc.wantErr {
				require.Error(t, err)
				assert.IsType(t, &core.ArgumentError{}, err)
				assert.Nil(t, reg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tc.steps), reg.Len())
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg := testRegistry(t)

	i, ok := reg.Index("three")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = reg.Index("five")
	assert.False(t, ok)

	s, ok := reg.Step(1)
	assert.True(t, ok)
	assert.Equal(t, "two", s.ID)

	_, ok = reg.Step(4)
	assert.False(t, ok)
	_, ok = reg.Step(-1)
	assert.False(t, ok)

	steps := reg.Steps()
	steps[0].ID = "changed"
	s, _ = reg.Step(0)
	assert.Equal(t, "one", s.ID, "Steps() must return a copy")
}

func TestMachine_Initial(t *testing.T) {
	m := New(testRegistry(t))
	assert.Equal(t, 0, m.Current())
	assert.Empty(t, m.Completed())
	assert.True(t, m.IsFirst())
	assert.False(t, m.IsLast())
	assert.Equal(t, "one", m.CurrentStep().ID)
}

func TestMachine_GoToStep(t *testing.T) {
	m := New(testRegistry(t))

	assert.True(t, m.GoToStep(3))
	assert.Equal(t, 3, m.Current())

	for _, i := range []int{-1, 4, 100} {
		assert.False(t, m.GoToStep(i))
		assert.Equal(t, 3, m.Current())
	}
}

func TestMachine_NextPrevAreClamped(t *testing.T) {
	m := New(testRegistry(t))

	assert.False(t, m.PrevStep())
	assert.Equal(t, 0, m.Current())

	for i := 1; i <= 3; i++ {
		assert.True(t, m.NextStep())
		assert.Equal(t, i, m.Current())
	}
	assert.False(t, m.NextStep())
	assert.Equal(t, 3, m.Current())
	assert.True(t, m.IsLast())
}

func TestMachine_BoundsHoldForAnySequence(t *testing.T) {
	reg := testRegistry(t)
	m := New(reg)
	rnd := rand.New(rand.NewSource(42))

	for n := 0; n < 5000; n++ {
		switch rnd.Intn(5) {
		case 0:
			m.NextStep()
		case 1:
			m.PrevStep()
		case 2:
			m.GoToStep(rnd.Intn(12) - 4)
		case 3:
			m.Advance(rnd.Intn(2) == 0)
		case 4:
			m.JumpTo(rnd.Intn(12) - 4)
		}
		require.GreaterOrEqual(t, m.Current(), 0)
		require.Less(t, m.Current(), reg.Len())
	}
}

func TestMachine_PrevStepIgnoresValidity(t *testing.T) {
	m := New(testRegistry(t))
	m.GoToStep(2)

	// nothing about the current step's validity is consulted
	assert.True(t, m.PrevStep())
	assert.Equal(t, 1, m.Current())
	assert.True(t, m.PrevStep())
	assert.Equal(t, 0, m.Current())
	assert.False(t, m.PrevStep())
	assert.Equal(t, 0, m.Current())
}

func TestMachine_MarkStepComplete(t *testing.T) {
	once := New(testRegistry(t))
	once.MarkStepComplete(1)

	twice := New(testRegistry(t))
	twice.MarkStepComplete(1)
	twice.MarkStepComplete(1)

	assert.Equal(t, once.Completed(), twice.Completed())
	assert.Equal(t, []int{1}, twice.Completed())

	twice.MarkStepComplete(-1)
	twice.MarkStepComplete(4)
	assert.Equal(t, []int{1}, twice.Completed())
}

func TestMachine_Advance(t *testing.T) {
	m := New(testRegistry(t))

	assert.False(t, m.Advance(false))
	assert.Equal(t, 0, m.Current())
	assert.Empty(t, m.Completed())

	assert.True(t, m.Advance(true))
	assert.Equal(t, 1, m.Current())
	assert.Equal(t, []int{0}, m.Completed())

	m.GoToStep(3)
	assert.False(t, m.Advance(true), "no step after the last one")
	assert.Equal(t, 3, m.Current())
	assert.Equal(t, []int{0, 3}, m.Completed())
}

func TestMachine_JumpTo(t *testing.T) {
	m := New(testRegistry(t))
	m.Advance(true)
	m.Advance(true)
	require.Equal(t, 2, m.Current())

	assert.False(t, m.JumpTo(3), "step 3 is not completed")
	assert.Equal(t, 2, m.Current())

	assert.True(t, m.JumpTo(0))
	assert.Equal(t, 0, m.Current())

	// completion marks survive going back
	assert.Equal(t, []int{0, 1}, m.Completed())
	assert.True(t, m.JumpTo(1))
	assert.True(t, m.JumpTo(1), "jumping to the current step is allowed")
}

func TestMachine_Revalidate(t *testing.T) {
	m := New(testRegistry(t))
	m.Advance(true)
	m.Advance(true)
	m.Advance(true)
	require.Equal(t, []int{0, 1, 2}, m.Completed())

	stripped := m.Revalidate(func(i int) bool { return i != 1 })
	assert.Equal(t, []int{1}, stripped)
	assert.Equal(t, []int{0, 2}, m.Completed())
	assert.Equal(t, 3, m.Current())
}

func TestMachine_StateRoundTrip(t *testing.T) {
	reg := testRegistry(t)
	m := New(reg)
	m.Advance(true)
	m.Advance(true)

	restored := Restore(reg, m.State())
	assert.Equal(t, m.State(), restored.State())

	bad := Restore(reg, State{Current: 9, Completed: []int{-1, 1, 7}})
	assert.Equal(t, State{Current: 0, Completed: []int{1}}, bad.State())
}
