package main

import (
	"time"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/model"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

const workerPollInterval = 10 * time.Second

func (s *srv) startWorker(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadStorage()
	s.loadPublisher()
	s.loadGateway()
	s.loadRepos()
	s.loadDomains()

	xcontext.Logger(s.ctx).Infof("Fulfillment worker started")
	for {
		s.fulfillPaidPayments()
		time.Sleep(workerPollInterval)
	}
}

// fulfillPaidPayments dispatches every paid payment once. The dispatcher's
// in-flight lock and status compare-and-set make a payment picked up by two
// worker instances harmless.
func (s *srv) fulfillPaidPayments() {
	payments, err := s.paymentRepo.GetAllByStatus(s.ctx, entity.PaymentPaid)
	if err != nil {
		xcontext.Logger(s.ctx).Errorf("Cannot scan paid payments: %v", err)
		return
	}

	for _, payment := range payments {
		_, err := s.paymentDomain.Fulfill(s.ctx, &model.FulfillPaymentRequest{PaymentID: payment.ID})
		if err != nil {
			xcontext.Logger(s.ctx).Warnf("Cannot fulfill payment %s: %v", payment.ID, err)
		}
	}
}
