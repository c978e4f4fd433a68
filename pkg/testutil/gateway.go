package testutil

import (
	"context"
	"math/big"

	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/errorx"
)

type MockGateway struct {
	ReadContractFunc func(ctx context.Context, network, address, function string, args ...any) ([]any, error)
	WriteContractFunc func(
		ctx context.Context,
		network string,
		signer *entity.EscrowWallet,
		address, function string,
		gas chain.GasOptions,
		args ...any,
	) (string, error)
	WaitForReceiptFunc  func(ctx context.Context, network, txHash string) (*chain.Receipt, error)
	GetCodeFunc         func(ctx context.Context, network, address string) ([]byte, error)
	EstimateGasFunc     func(ctx context.Context, network, from, to string, data []byte) (uint64, error)
	SuggestGasPriceFunc func(ctx context.Context, network string) (*big.Int, error)
}

func (m *MockGateway) ReadContract(
	ctx context.Context, network, address, function string, args ...any,
) ([]any, error) {
	if m.ReadContractFunc != nil {
		return m.ReadContractFunc(ctx, network, address, function, args...)
	}

	return nil, errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockGateway) WriteContract(
	ctx context.Context,
	network string,
	signer *entity.EscrowWallet,
	address, function string,
	gas chain.GasOptions,
	args ...any,
) (string, error) {
	if m.WriteContractFunc != nil {
		return m.WriteContractFunc(ctx, network, signer, address, function, gas, args...)
	}

	return "", errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockGateway) WaitForReceipt(ctx context.Context, network, txHash string) (*chain.Receipt, error) {
	if m.WaitForReceiptFunc != nil {
		return m.WaitForReceiptFunc(ctx, network, txHash)
	}

	return &chain.Receipt{Status: chain.ReceiptSuccess, TxHash: txHash}, nil
}

func (m *MockGateway) GetCode(ctx context.Context, network, address string) ([]byte, error) {
	if m.GetCodeFunc != nil {
		return m.GetCodeFunc(ctx, network, address)
	}

	return []byte{0x60}, nil
}

func (m *MockGateway) EstimateGas(
	ctx context.Context, network, from, to string, data []byte,
) (uint64, error) {
	if m.EstimateGasFunc != nil {
		return m.EstimateGasFunc(ctx, network, from, to, data)
	}

	return 21000, nil
}

func (m *MockGateway) SuggestGasPrice(ctx context.Context, network string) (*big.Int, error) {
	if m.SuggestGasPriceFunc != nil {
		return m.SuggestGasPriceFunc(ctx, network)
	}

	return big.NewInt(1), nil
}
