package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAddValidatesSpec(t *testing.T) {
	s := New(nil, nil)
	defer s.Stop()
	if err := s.Add("not a spec", "bad", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid spec")
	}
	if err := s.Add("", "disabled", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("empty spec: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("no job should be registered")
	}
	if err := s.Add("@hourly", "sweep", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("job not registered")
	}
}

func TestRunContainsFailures(t *testing.T) {
	s := New(time.UTC, nil)
	defer s.Stop()
	var calls int32
	s.run("fails", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	s.run("panics", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		panic("boom")
	})
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestStopCancelsJobContext(t *testing.T) {
	s := New(time.UTC, nil)
	var ctx context.Context
	s.run("capture", func(c context.Context) error {
		ctx = c
		return nil
	})
	s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("job context not cancelled on stop")
	}
}
