package cron

import (
	"context"
	"time"

	"github.com/rs-ent/starglow-sub013/internal/domain"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

const defaultRewardScanInterval = 10 * time.Minute

// RewardScanCronJob runs the staking reward eligibility scan on a fixed
// interval. The scan itself is single-flight, so an overlapping tick from
// another instance loses the lock and is skipped, not queued.
type RewardScanCronJob struct {
	stakingDomain domain.StakingDomain
	interval      time.Duration
}

func NewRewardScanCronJob(ctx context.Context, stakingDomain domain.StakingDomain) *RewardScanCronJob {
	interval := xcontext.Configs(ctx).Blockchain.RewardScanInterval
	if interval <= 0 {
		interval = defaultRewardScanInterval
	}

	return &RewardScanCronJob{stakingDomain: stakingDomain, interval: interval}
}

func (job *RewardScanCronJob) Do(ctx context.Context) {
	resp, err := job.stakingDomain.FindRewardableStakeTokens(ctx)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Reward scan did not run: %v", err)
		return
	}

	if len(resp.Tokens) > 0 {
		xcontext.Logger(ctx).Infof("Reward scan posted %d accrual logs", len(resp.Tokens))
	}
}

func (job *RewardScanCronJob) RunNow() bool {
	return false
}

func (job *RewardScanCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
