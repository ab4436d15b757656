package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-emis/tests"
)

type fakeSweeper struct {
	n     int
	err   error
	calls int
}

func (s *fakeSweeper) Sweep(context.Context) (int, error) {
	s.calls++
	return s.n, s.err
}

func Test_newSweeper(t *testing.T) {
	logger := testutil.NewLogger(testutil.NewConfig())

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "every", schedule: "@every 15m"},
		{name: "cron spec", schedule: "*/5 * * * *"},
		{name: "invalid", schedule: "every now and then", wantErr: true},
		{name: "empty", schedule: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newSweeper(tt.schedule, &fakeSweeper{}, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, c.Entries(), 1)
		})
	}
}

func Test_sweepJob(t *testing.T) {
	logger := testutil.NewLogger(testutil.NewConfig())

	svc := &fakeSweeper{n: 3}
	sweepJob(svc, logger)()
	assert.Equal(t, 1, svc.calls)

	// errors are logged, not raised
	svc = &fakeSweeper{err: errors.New("redis is down")}
	assert.NotPanics(t, sweepJob(svc, logger))
	assert.Equal(t, 1, svc.calls)
}

func Test_keyValues(t *testing.T) {
	assert.Equal(t,
		map[string]interface{}{"now": 1, "entry": 2},
		keyValues([]interface{}{"now", 1, "entry", 2, "dangling"}),
	)
	assert.Empty(t, keyValues(nil))
}
