package domain

import (
	"context"
	"testing"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/model"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/errorx"
	"github.com/rs-ent/starglow-sub013/pkg/testutil"
	"github.com/stretchr/testify/require"
)

type mockTransferDomain struct {
	fulfillCalls int
	fulfillFunc  func(ctx context.Context, paymentID string) (*model.TransferResponse, error)
}

func (m *mockTransferDomain) FulfillFromEscrow(
	ctx context.Context, paymentID string,
) (*model.TransferResponse, error) {
	m.fulfillCalls++
	if m.fulfillFunc != nil {
		return m.fulfillFunc(ctx, paymentID)
	}

	return &model.TransferResponse{TxHash: "0xtransfer", TokenIDs: []int64{3, 7}}, nil
}

func (m *mockTransferDomain) TransferWithAuthorization(
	ctx context.Context, req *model.TransferWithAuthorizationRequest,
) (*model.TransferResponse, error) {
	return nil, errorx.New(errorx.NotImplemented, "Not implemented")
}

func Test_paymentDomain_Fulfill(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.InsertPayment(ctx, "payment1", 2, entity.PaymentPaid)

	transfer := &mockTransferDomain{}
	paymentDomain := NewPaymentDomain(
		repository.NewPaymentRepository(), transfer, &testutil.MockRedisClient{})

	resp, err := paymentDomain.Fulfill(ctx, &model.FulfillPaymentRequest{PaymentID: "payment1"})
	require.NoError(t, err)
	require.Equal(t, "completed", resp.Status)
	require.Equal(t, "0xtransfer", resp.Result["tx_hash"])
	require.Equal(t, 1, transfer.fulfillCalls)

	payment, err := paymentDomain.paymentRepo.GetByID(ctx, "payment1")
	require.NoError(t, err)
	require.Equal(t, entity.PaymentCompleted, payment.Status)
	require.True(t, payment.CompletedAt.Valid)

	// A repeated delivery echoes the stored outcome; no second transfer.
	resp, err = paymentDomain.Fulfill(ctx, &model.FulfillPaymentRequest{PaymentID: "payment1"})
	require.NoError(t, err)
	require.Equal(t, "completed", resp.Status)
	require.Equal(t, "0xtransfer", resp.Result["tx_hash"])
	require.Equal(t, 1, transfer.fulfillCalls)
}

func Test_paymentDomain_Fulfill_transferFailure(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.InsertPayment(ctx, "payment1", 4, entity.PaymentPaid)

	transfer := &mockTransferDomain{
		fulfillFunc: func(ctx context.Context, paymentID string) (*model.TransferResponse, error) {
			return nil, errorx.New(errorx.InsufficientInventory,
				"insufficient on-chain inventory: required 4, available 3")
		},
	}
	paymentDomain := NewPaymentDomain(
		repository.NewPaymentRepository(), transfer, &testutil.MockRedisClient{})

	_, err := paymentDomain.Fulfill(ctx, &model.FulfillPaymentRequest{PaymentID: "payment1"})
	require.Error(t, err)
	require.Equal(t, "insufficient on-chain inventory: required 4, available 3", err.Error())

	// The payment never stays in paid limbo after a dispatch failure.
	payment, err := paymentDomain.paymentRepo.GetByID(ctx, "payment1")
	require.NoError(t, err)
	require.Equal(t, entity.PaymentFailed, payment.Status)
	require.Equal(t, "insufficient on-chain inventory: required 4, available 3", payment.FailureReason)

	// Dispatching the failed payment again returns the stored outcome.
	resp, err := paymentDomain.Fulfill(ctx, &model.FulfillPaymentRequest{PaymentID: "payment1"})
	require.NoError(t, err)
	require.Equal(t, "failed", resp.Status)
	require.Equal(t, 1, transfer.fulfillCalls)
}

func Test_paymentDomain_Fulfill_inflightLock(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.InsertPayment(ctx, "payment1", 1, entity.PaymentPaid)

	redisClient := &testutil.MockRedisClient{}
	require.NoError(t, redisClient.Set(ctx, paymentInflightKey("payment1"), "1"))

	transfer := &mockTransferDomain{}
	paymentDomain := NewPaymentDomain(repository.NewPaymentRepository(), transfer, redisClient)

	_, err := paymentDomain.Fulfill(ctx, &model.FulfillPaymentRequest{PaymentID: "payment1"})
	require.Error(t, err)
	require.Equal(t, "Payment payment1 is already being fulfilled", err.Error())
	require.Equal(t, 0, transfer.fulfillCalls)
}

func Test_paymentDomain_Fulfill_nonTransitionableStatuses(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.InsertPayment(ctx, "cancelled", 1, entity.PaymentCancelled)
	testutil.InsertPayment(ctx, "refunded", 1, entity.PaymentRefunded)

	transfer := &mockTransferDomain{}
	paymentDomain := NewPaymentDomain(
		repository.NewPaymentRepository(), transfer, &testutil.MockRedisClient{})

	resp, err := paymentDomain.Fulfill(ctx, &model.FulfillPaymentRequest{PaymentID: "cancelled"})
	require.NoError(t, err)
	require.Equal(t, "cancelled", resp.Status)

	resp, err = paymentDomain.Fulfill(ctx, &model.FulfillPaymentRequest{PaymentID: "refunded"})
	require.NoError(t, err)
	require.Equal(t, "refunded", resp.Status)

	require.Equal(t, 0, transfer.fulfillCalls)
}

func Test_paymentDomain_Fulfill_eventProduct(t *testing.T) {
	ctx := testutil.MockContext()
	payment := &entity.Payment{
		Base:         entity.Base{ID: "payment1"},
		ProductTable: entity.PaymentProductEvent,
		ProductID:    "event1",
		Quantity:     1,
		Status:       entity.PaymentPaid,
	}
	require.NoError(t, repository.NewPaymentRepository().Create(ctx, payment))

	transfer := &mockTransferDomain{}
	paymentDomain := NewPaymentDomain(
		repository.NewPaymentRepository(), transfer, &testutil.MockRedisClient{})

	// Event products only echo their status; nothing is dispatched.
	resp, err := paymentDomain.Fulfill(ctx, &model.FulfillPaymentRequest{PaymentID: "payment1"})
	require.NoError(t, err)
	require.Equal(t, "paid", resp.Status)
	require.Equal(t, 0, transfer.fulfillCalls)
}
