package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// slowScheduler takes a while to unwind after cancellation, like an
// ingestion that is still committing.
type slowScheduler struct {
	stopped atomic.Bool
}

func (s *slowScheduler) Run(ctx context.Context) error {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	s.stopped.Store(true)
	return ctx.Err()
}

type fakeServer struct {
	err error
}

func (f fakeServer) ListenAndServe(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestServeWithSchedulerWaitsOnShutdown(t *testing.T) {
	sched := &slowScheduler{}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := serveWithScheduler(ctx, sched, fakeServer{}); err != nil {
		t.Fatalf("Expected clean shutdown, got %v", err)
	}
	if !sched.stopped.Load() {
		t.Error("Expected scheduler to stop before returning")
	}
}

func TestServeWithSchedulerStopsOnServerError(t *testing.T) {
	sched := &slowScheduler{}
	errBind := errors.New("address already in use")

	err := serveWithScheduler(context.Background(), sched, fakeServer{err: errBind})
	if !errors.Is(err, errBind) {
		t.Fatalf("Expected server error, got %v", err)
	}
	if !sched.stopped.Load() {
		t.Error("Expected scheduler to stop before returning")
	}
}
