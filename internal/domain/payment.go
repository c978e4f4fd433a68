package domain

import (
	"context"
	"time"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/model"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/errorx"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"github.com/rs-ent/starglow-sub013/pkg/xredis"
)

const paymentInflightTTL = 5 * time.Minute

type PaymentDomain interface {
	Fulfill(ctx context.Context, req *model.FulfillPaymentRequest) (*model.FulfillPaymentResponse, error)
}

// paymentDomain is the single choke point through which an nft payment
// acquires a completed or failed state. Everything it does is idempotent:
// the redis in-flight lock drops duplicate deliveries, the status
// compare-and-set drops lost races, and terminal payments echo their stored
// outcome without a second transfer attempt.
type paymentDomain struct {
	paymentRepo    repository.PaymentRepository
	transferDomain TransferDomain
	redisClient    xredis.Client
}

func NewPaymentDomain(
	paymentRepo repository.PaymentRepository,
	transferDomain TransferDomain,
	redisClient xredis.Client,
) *paymentDomain {
	return &paymentDomain{
		paymentRepo:    paymentRepo,
		transferDomain: transferDomain,
		redisClient:    redisClient,
	}
}

func paymentInflightKey(id string) string {
	return "payment:inflight:" + id
}

func (d *paymentDomain) Fulfill(
	ctx context.Context, req *model.FulfillPaymentRequest,
) (*model.FulfillPaymentResponse, error) {
	if req.PaymentID == "" {
		return nil, errorx.New(errorx.BadRequest, "Missing payment id")
	}

	if d.redisClient != nil {
		acquired, err := d.redisClient.SetNX(
			ctx, paymentInflightKey(req.PaymentID), "1", paymentInflightTTL)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot acquire in-flight lock of %s: %v", req.PaymentID, err)
			return nil, errorx.Unknown
		}

		if !acquired {
			return nil, errorx.New(errorx.TooManyRequests,
				"Payment %s is already being fulfilled", req.PaymentID)
		}

		defer func() {
			if err := d.redisClient.Del(ctx, paymentInflightKey(req.PaymentID)); err != nil {
				xcontext.Logger(ctx).Warnf("Cannot release in-flight lock of %s: %v", req.PaymentID, err)
			}
		}()
	}

	payment, err := d.paymentRepo.GetByID(ctx, req.PaymentID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get payment %s: %v", req.PaymentID, err)
		return nil, errorx.New(errorx.NotFound, "Not found payment")
	}

	switch payment.ProductTable {
	case entity.PaymentProductNFT:
		return d.fulfillNFT(ctx, payment)

	case entity.PaymentProductEvent:
		// Event products have no on-chain effect; the dispatcher only echoes
		// the current status.
		return &model.FulfillPaymentResponse{Status: string(payment.Status)}, nil

	default:
		return nil, errorx.New(errorx.BadRequest,
			"Unknown product table %s of payment %s", payment.ProductTable, payment.ID)
	}
}

func (d *paymentDomain) fulfillNFT(
	ctx context.Context, payment *entity.Payment,
) (*model.FulfillPaymentResponse, error) {
	switch payment.Status {
	case entity.PaymentPaid:
		return d.dispatchTransfer(ctx, payment)

	case entity.PaymentCompleted:
		return &model.FulfillPaymentResponse{
			Status: string(entity.PaymentCompleted),
			Result: payment.PostProcessResult,
		}, nil

	case entity.PaymentFailed:
		return &model.FulfillPaymentResponse{
			Status: string(entity.PaymentFailed),
			Result: map[string]any{"reason": payment.FailureReason},
		}, nil

	case entity.PaymentCancelled:
		return &model.FulfillPaymentResponse{Status: string(entity.PaymentCancelled)}, nil

	case entity.PaymentRefunded:
		result := map[string]any{}
		if payment.RefundedAt.Valid {
			result["refunded_at"] = payment.RefundedAt.Time
		}

		return &model.FulfillPaymentResponse{
			Status: string(entity.PaymentRefunded),
			Result: result,
		}, nil

	default:
		return nil, errorx.New(errorx.StateConflict,
			"Payment %s is in invalid status %s", payment.ID, payment.Status)
	}
}

func (d *paymentDomain) dispatchTransfer(
	ctx context.Context, payment *entity.Payment,
) (*model.FulfillPaymentResponse, error) {
	resp, err := d.transferDomain.FulfillFromEscrow(ctx, payment.ID)
	if err != nil {
		failPayment(ctx, d.paymentRepo, payment.ID, err.Error())
		return nil, err
	}

	result := entity.Map{"tx_hash": resp.TxHash, "token_ids": resp.TokenIDs}
	moved, err := completePayment(ctx, d.paymentRepo, payment.ID, result)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot complete payment %s: %v", payment.ID, err)
		return nil, errorx.New(errorx.ChainLedgerDiverged,
			"Transferred on chain but payment %s could not be completed", payment.ID)
	}

	if !moved {
		xcontext.Logger(ctx).Warnf("Payment %s moved out of paid during fulfillment", payment.ID)
	}

	return &model.FulfillPaymentResponse{
		Status: string(entity.PaymentCompleted),
		Result: result,
	}, nil
}
