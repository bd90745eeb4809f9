package cron

import (
	"context"
	"fmt"

	"github.com/phonelife/storefront/pkg/logger"
)

const SessionSweepJobName = "cart_session_sweep"

type sessionSweeper interface {
	Sweep() int
	Len() int
}

// SessionSweepJob evicts cart stores whose session has been idle too long.
// Evicted carts stay in storage and are restored on the next request.
type SessionSweepJob struct {
	sessions sessionSweeper
	logg     *logger.Logger
}

func NewSessionSweepJob(sessions sessionSweeper, logg *logger.Logger) (*SessionSweepJob, error) {
	if sessions == nil {
		return nil, fmt.Errorf("cart sessions required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &SessionSweepJob{sessions: sessions, logg: logg}, nil
}

func (j *SessionSweepJob) Name() string { return SessionSweepJobName }

func (j *SessionSweepJob) Run(ctx context.Context) error {
	if evicted := j.sessions.Sweep(); evicted > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"evicted":   evicted,
			"remaining": j.sessions.Len(),
		}), "idle cart sessions evicted")
	}
	return nil
}
