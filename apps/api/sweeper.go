package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/masomo-emis/core"
)

type wizardSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// newSweeper schedules the removal of idle wizards. A run is skipped while the previous one is still going.
func newSweeper(schedule string, svc wizardSweeper, logger core.Logger) (*cron.Cron, error) {
	cl := cronLogger{logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(schedule, sweepJob(svc, logger)); err != nil {
		return nil, errors.Wrapf(err, "parsing schedule %q", schedule)
	}
	return c, nil
}

func sweepJob(svc wizardSweeper, logger core.Logger) func() {
	return func() {
		n, err := svc.Sweep(context.Background())
		if err != nil {
			logger.Error("sweeping wizards", err)
			return
		}
		if n > 0 {
			logger.Info(fmt.Sprintf("%d idle wizards swept", n))
		}
	}
}

// cronLogger reports cron's own events to the app logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keyValues(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, err, keyValues(keysAndValues))
}

func keyValues(kvs []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		m[fmt.Sprint(kvs[i])] = kvs[i+1]
	}
	return m
}
