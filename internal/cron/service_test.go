package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/harborline/marketplace-backend/pkg/logger"
)

type fakeLock struct {
	acquired   bool
	acquireErr error
	acquires   int
	releases   int
}

func (l *fakeLock) Acquire(context.Context) (bool, error) {
	l.acquires++
	return l.acquired, l.acquireErr
}

func (l *fakeLock) Release(context.Context) error {
	l.releases++
	return nil
}

type fakeJob struct {
	name string
	runs int
	err  error
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func TestRunCycleExecutesRegisteredJobs(t *testing.T) {
	t.Parallel()
	first := &fakeJob{name: "first"}
	second := &fakeJob{name: "second", err: errors.New("boom")}
	third := &fakeJob{name: "third"}
	lock := &fakeLock{acquired: true}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second, third),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	if first.runs != 1 || second.runs != 1 || third.runs != 1 {
		t.Fatalf("expected each job to run once, got %d/%d/%d", first.runs, second.runs, third.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	t.Parallel()
	job := &fakeJob{name: "only"}
	lock := &fakeLock{acquired: false}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d times", job.runs)
	}
	if lock.releases != 0 {
		t.Fatalf("expected no release without ownership, got %d", lock.releases)
	}
}

func TestRunCycleReturnsLockError(t *testing.T) {
	t.Parallel()
	lock := &fakeLock{acquireErr: errors.New("redis down")}
	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Lock:   lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err == nil {
		t.Fatal("expected lock acquire error")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	t.Parallel()
	if _, err := NewService(ServiceParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error for missing lock")
	}
}
