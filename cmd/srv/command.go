package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "Starglow fulfillment"
	app.Usage = ""
	app.Commands = []*cli.Command{
		{
			Action:      server.startWorker,
			Name:        "worker",
			Usage:       "Start the payment fulfillment worker",
			Category:    "Worker",
			Description: `Scans paid payments and dispatches each one to its fulfillment handler.`,
		},
		{
			Action:      server.startCron,
			Name:        "cron",
			Usage:       "Start the cron jobs",
			Category:    "Worker",
			Description: `Runs the staking reward scan and the chain-ledger reconciliation sweep on their schedules.`,
		},
		{
			Action:      server.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the database schema",
			Category:    "Database",
			Description: `Creates or updates all tables this service owns.`,
		},
	}

	s.app = app
}
