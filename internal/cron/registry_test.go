package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrder(t *testing.T) {
	jobA := &stubJob{name: "outbox-retention"}
	jobB := &stubJob{name: "low-stock-alert"}
	registry := NewRegistry(jobA, nil, jobB)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "ledger-reconcile"})
	if registry.Register(&stubJob{name: "ledger-reconcile"}) {
		t.Fatal("expected duplicate name rejected")
	}
	if !registry.Register(&stubJob{name: "guest-cart-purge"}) {
		t.Fatal("expected new job accepted")
	}
	if got := len(registry.Jobs()); got != 2 {
		t.Fatalf("expected 2 jobs, got %d", got)
	}
}

func TestZeroRegistryAcceptsJobs(t *testing.T) {
	var registry Registry
	if !registry.Register(&stubJob{name: "a"}) {
		t.Fatal("expected zero-value registry to accept a job")
	}
}
