package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phonelife/storefront/internal/cart"
	"github.com/phonelife/storefront/pkg/logger"
	"github.com/phonelife/storefront/pkg/metrics"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(reg)
	success := &testJob{name: "success"}
	failing := &testJob{name: "fail", err: errors.New("boom")}

	jobs, err := NewRegistry(success, nil, failing)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: jobs,
		Metrics:  jobMetrics,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	service.runCycle(context.Background())

	if success.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", success.runs, failing.runs)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	failures := 0.0
	for _, mf := range mfs {
		if mf.GetName() != "storefront_job_failure_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			failures += m.GetCounter().GetValue()
		}
	}
	if failures != 1 {
		t.Fatalf("expected one failure recorded, got %v", failures)
	}
}

func TestNewServiceRequiresLogger(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "tick"}
	jobs, err := NewRegistry(job)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: jobs,
		Interval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := service.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if job.runs == 0 {
		t.Fatalf("expected the job to tick at least once")
	}
}

func TestSessionSweepJobEvictsIdleStores(t *testing.T) {
	backend := cart.NewMemoryBackend()
	sessions := cart.NewSessions(backend.ForSession, time.Nanosecond, nil)
	sessions.Open(context.Background(), "a")
	sessions.Open(context.Background(), "b")
	time.Sleep(time.Millisecond)

	job, err := NewSessionSweepJob(sessions, logger.Nop())
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sessions.Len() != 0 {
		t.Fatalf("expected idle sessions evicted, %d left", sessions.Len())
	}
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	if _, err := NewRegistry(&testJob{name: "sweep"}, &testJob{name: "sweep"}); err == nil {
		t.Fatalf("expected duplicate job name to be rejected")
	}
	if _, err := NewRegistry(&testJob{name: "  "}); err == nil {
		t.Fatalf("expected blank job name to be rejected")
	}

	jobs, err := NewRegistry(&testJob{name: "a"}, &testJob{name: "b"})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if job, ok := jobs.Lookup("b"); !ok || job.Name() != "b" {
		t.Fatalf("expected lookup of b, got %v %v", job, ok)
	}
	if names := []string{jobs.Jobs()[0].Name(), jobs.Jobs()[1].Name()}; names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected registration order, got %v", names)
	}
}
