package cron

import (
	"context"
	"fmt"

	"github.com/IstiakDeveloper/orgreeni/internal/inventory"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

type reconciler interface {
	Reconcile(ctx context.Context) (inventory.ReconcileReport, error)
}

type LedgerReconcileJobParams struct {
	Logger    *logger.Logger
	Inventory reconciler
}

// NewLedgerReconcileJob compares stock projections against the ledger and
// logs every drift. It never rewrites stock; drifts are for an operator.
func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &ledgerReconcileJob{logg: params.Logger, inventory: params.Inventory}, nil
}

type ledgerReconcileJob struct {
	logg      *logger.Logger
	inventory reconciler
}

func (j *ledgerReconcileJob) Name() string { return "ledger-reconcile" }

func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	report, err := j.inventory.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile ledger: %w", err)
	}
	for _, drift := range report.Drifts {
		fields := map[string]any{
			"event":      "inventory.ledger.drift",
			"product_id": drift.ProductID.String(),
			"projected":  drift.Projected,
			"ledger":     drift.Ledger,
		}
		if drift.VariantID != nil {
			fields["variant_id"] = drift.VariantID.String()
		}
		j.logg.Warn(j.logg.WithFields(ctx, fields), "stock projection differs from ledger")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"checked": report.Checked,
		"drifts":  len(report.Drifts),
	}), "ledger reconciliation complete")
	return nil
}
