package main

import (
	"github.com/rs-ent/starglow-sub013/internal/domain/cron"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadStorage()
	s.loadPublisher()
	s.loadGateway()
	s.loadRepos()
	s.loadDomains()

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Start(
		s.ctx,
		cron.NewRewardScanCronJob(s.ctx, s.stakingDomain),
		cron.NewReconcileCronJob(s.ctx, s.reconcileDomain),
	)

	return nil
}
