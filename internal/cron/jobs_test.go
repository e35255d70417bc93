package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/payloads"
)

type fakeLowStock struct {
	items []inventory.LowStockItem
	err   error
}

func (f fakeLowStock) ListLowStock(context.Context, int) ([]inventory.LowStockItem, error) {
	return f.items, f.err
}

type fakeAlertStore struct {
	keys    map[string]bool
	deleted []string
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{keys: map[string]bool{}}
}

func (f *fakeAlertStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeAlertStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.keys, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

func (f *fakeAlertStore) AlertKey(kind string, parts ...string) string {
	return "alert:" + kind + ":" + strings.Join(parts, ":")
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type recordingEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func newLowStockJob(t *testing.T, lister lowStockLister, store alertStore, emitter outbox.Emitter, now time.Time) *lowStockAlertJob {
	t.Helper()
	jobIface, err := NewLowStockAlertJob(LowStockAlertJobParams{
		Logger:    testLogger(),
		Inventory: lister,
		Alerts:    store,
		DB:        passthroughTx{},
		Events:    emitter,
	})
	if err != nil {
		t.Fatalf("NewLowStockAlertJob: %v", err)
	}
	job := jobIface.(*lowStockAlertJob)
	job.now = func() time.Time { return now }
	return job
}

func TestLowStockAlertDedupesPerProductPerDay(t *testing.T) {
	productA, productB := uuid.New(), uuid.New()
	lister := fakeLowStock{items: []inventory.LowStockItem{
		{ProductID: productA, SKU: "RICE-5KG", CurrentStock: 3, Threshold: 10},
		{ProductID: productB, SKU: "OIL-1L", CurrentStock: 0, Threshold: 5},
	}}
	store := newFakeAlertStore()
	emitter := &recordingEmitter{}
	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	job := newLowStockJob(t, lister, store, emitter, day)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(emitter.events))
	}
	first := emitter.events[0]
	if first.EventType != enums.EventStockLow || first.AggregateType != enums.AggregateProduct {
		t.Fatalf("unexpected event %+v", first)
	}
	if data := first.Data.(payloads.StockLowEvent); data.ProductID != productA || data.Threshold != 10 {
		t.Fatalf("unexpected payload %+v", data)
	}

	// A second tick on the same day raises nothing.
	job.now = func() time.Time { return day.Add(6 * time.Hour) }
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected dedupe within the day, got %d events", len(emitter.events))
	}

	job.now = func() time.Time { return day.AddDate(0, 0, 1) }
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("next day run: %v", err)
	}
	if len(emitter.events) != 4 {
		t.Fatalf("expected alerts again next day, got %d events", len(emitter.events))
	}
}

func TestLowStockAlertFreesKeyWhenEmitFails(t *testing.T) {
	product := uuid.New()
	store := newFakeAlertStore()
	emitter := &recordingEmitter{err: errors.New("db down")}
	job := newLowStockJob(t, fakeLowStock{items: []inventory.LowStockItem{{ProductID: product}}}, store, emitter, time.Now())

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(store.keys) != 0 || len(store.deleted) != 1 {
		t.Fatalf("expected dedupe key released, keys=%v deleted=%v", store.keys, store.deleted)
	}
}

func TestLowStockAlertPropagatesListError(t *testing.T) {
	job := newLowStockJob(t, fakeLowStock{err: errors.New("boom")}, newFakeAlertStore(), &recordingEmitter{}, time.Now())
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeReconciler struct {
	report inventory.ReconcileReport
	err    error
	calls  int
}

func (f *fakeReconciler) Reconcile(context.Context) (inventory.ReconcileReport, error) {
	f.calls++
	return f.report, f.err
}

func TestLedgerReconcileJobReportsDrifts(t *testing.T) {
	variant := uuid.New()
	rec := &fakeReconciler{report: inventory.ReconcileReport{
		Checked: 4,
		Drifts:  []inventory.Drift{{ProductID: uuid.New(), VariantID: &variant, Projected: 5, Ledger: 7}},
	}}
	job, err := NewLedgerReconcileJob(LedgerReconcileJobParams{Logger: testLogger(), Inventory: rec})
	if err != nil {
		t.Fatalf("NewLedgerReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.calls != 1 {
		t.Fatalf("expected one reconcile call, got %d", rec.calls)
	}

	rec.err = errors.New("query failed")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakePurger struct {
	before time.Time
	err    error
}

func (f *fakePurger) PurgeStaleGuestCarts(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return 3, f.err
}

func TestGuestCartPurgeUsesRetention(t *testing.T) {
	purger := &fakePurger{}
	jobIface, err := NewGuestCartPurgeJob(GuestCartPurgeJobParams{Logger: testLogger(), Carts: purger, Retention: 14})
	if err != nil {
		t.Fatalf("NewGuestCartPurgeJob: %v", err)
	}
	job := jobIface.(*guestCartPurgeJob)
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC); !purger.before.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, purger.before)
	}

	purger.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
