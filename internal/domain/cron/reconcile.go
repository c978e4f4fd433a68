package cron

import (
	"context"
	"time"

	"github.com/rs-ent/starglow-sub013/internal/domain"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

const defaultReconcileInterval = 30 * time.Minute

// ReconcileCronJob periodically repairs chain-ledger divergence left behind
// by unknown-outcome writes or failed ledger transactions.
type ReconcileCronJob struct {
	reconcileDomain domain.ReconcileDomain
	interval        time.Duration
}

func NewReconcileCronJob(ctx context.Context, reconcileDomain domain.ReconcileDomain) *ReconcileCronJob {
	interval := xcontext.Configs(ctx).Blockchain.ReconcileInterval
	if interval <= 0 {
		interval = defaultReconcileInterval
	}

	return &ReconcileCronJob{reconcileDomain: reconcileDomain, interval: interval}
}

func (job *ReconcileCronJob) Do(ctx context.Context) {
	if err := job.reconcileDomain.Sweep(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Reconciliation sweep failed: %v", err)
	}
}

func (job *ReconcileCronJob) RunNow() bool {
	return true
}

func (job *ReconcileCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
