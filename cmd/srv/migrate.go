package main

import (
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startMigrate(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	xcontext.Logger(s.ctx).Infof("Migration done")

	return nil
}
