package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/ethutil"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

const defaultReceiptPollInterval = 2 * time.Second

type ethGateway struct {
	pools map[string]*networkPool
}

// NewGateway builds a gateway over every network in the configuration.
func NewGateway(ctx context.Context) *ethGateway {
	g := &ethGateway{pools: make(map[string]*networkPool)}
	for _, network := range xcontext.Configs(ctx).Blockchain.Networks {
		g.pools[network.Name] = newNetworkPool(network)
	}

	return g
}

func (g *ethGateway) Start(ctx context.Context) {
	for _, pool := range g.pools {
		go pool.start(ctx)
	}
}

func (g *ethGateway) pool(network string) (*networkPool, error) {
	pool, ok := g.pools[network]
	if !ok {
		return nil, fmt.Errorf("unsupported network %s", network)
	}

	return pool, nil
}

func (g *ethGateway) ReadContract(
	ctx context.Context, network, address, function string, args ...any,
) ([]any, error) {
	pool, err := g.pool(network)
	if err != nil {
		return nil, err
	}

	data, err := collectionABI.Pack(function, args...)
	if err != nil {
		return nil, err
	}

	contractAddress := common.HexToAddress(address)
	output, err := pool.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		defer cancel()

		return client.CallContract(callCtx, ethereum.CallMsg{
			To:   &contractAddress,
			Data: data,
		}, nil)
	})
	if err != nil {
		return nil, err
	}

	return collectionABI.Unpack(function, output.([]byte))
}

func (g *ethGateway) WriteContract(
	ctx context.Context,
	network string,
	signer *entity.EscrowWallet,
	address, function string,
	gas chain.GasOptions,
	args ...any,
) (string, error) {
	pool, err := g.pool(network)
	if err != nil {
		return "", err
	}

	data, err := collectionABI.Pack(function, args...)
	if err != nil {
		return "", err
	}

	secret := xcontext.Configs(ctx).Blockchain.SecretKey
	privateKey, err := ethutil.GeneratePrivateKey([]byte(secret), []byte(signer.WalletNonce))
	if err != nil {
		return "", err
	}

	from := crypto.PubkeyToAddress(privateKey.PublicKey)
	to := common.HexToAddress(address)

	hash, err := pool.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		nonce, err := client.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, err
		}

		gasPrice := gas.GasPrice
		if gasPrice == nil {
			gasPrice, err = client.SuggestGasPrice(ctx)
			if err != nil {
				return nil, err
			}
		}

		gasLimit := gas.GasLimit
		if gasLimit == 0 {
			estimated, err := client.EstimateGas(ctx, ethereum.CallMsg{
				From: from,
				To:   &to,
				Data: data,
			})
			if err != nil {
				return nil, err
			}

			// Headroom over the estimate; unused gas is refunded.
			gasLimit = estimated + estimated/5
		}

		tx := ethtypes.NewTransaction(nonce, to, common.Big0, gasLimit, gasPrice, data)
		signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(pool.chainID), privateKey)
		if err != nil {
			return nil, err
		}

		err = client.SendTransaction(ctx, signedTx)
		if err != nil && !strings.Contains(err.Error(), "already known") {
			// Submission duplicates happen when another node already saw the
			// transaction. Ethereum JSON RPC has no error codes for this, so
			// string matching is the only way to tell.
			return nil, err
		}

		return signedTx.Hash().Hex(), nil
	})
	if err != nil {
		return "", err
	}

	return hash.(string), nil
}

func (g *ethGateway) WaitForReceipt(ctx context.Context, network, txHash string) (*chain.Receipt, error) {
	pool, err := g.pool(network)
	if err != nil {
		return nil, err
	}

	cfg := xcontext.Configs(ctx).Blockchain
	pollInterval := cfg.ReceiptPollInterval
	if pollInterval == 0 {
		pollInterval = defaultReceiptPollInterval
	}

	deadline := time.Now().Add(cfg.ReceiptTimeout)
	hash := common.HexToHash(txHash)

	for {
		receipt, err := pool.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
			callCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
			defer cancel()

			return client.TransactionReceipt(callCtx, hash)
		})

		if err == nil && receipt != nil {
			r := receipt.(*ethtypes.Receipt)
			status := chain.ReceiptReverted
			if r.Status == ethtypes.ReceiptStatusSuccessful {
				status = chain.ReceiptSuccess
			}

			return &chain.Receipt{
				Status:      status,
				TxHash:      txHash,
				BlockNumber: r.BlockNumber.Int64(),
			}, nil
		}

		if time.Now().After(deadline) {
			// No observation is not proof of failure. The transaction may
			// still land; report unknown and leave repair to reconciliation.
			xcontext.Logger(ctx).Warnf("No receipt for tx %s on network %s within %s",
				txHash, network, cfg.ReceiptTimeout)
			return &chain.Receipt{Status: chain.ReceiptUnknown, TxHash: txHash}, nil
		}

		select {
		case <-ctx.Done():
			return &chain.Receipt{Status: chain.ReceiptUnknown, TxHash: txHash}, nil
		case <-time.After(pollInterval):
		}
	}
}

func (g *ethGateway) GetCode(ctx context.Context, network, address string) ([]byte, error) {
	pool, err := g.pool(network)
	if err != nil {
		return nil, err
	}

	code, err := pool.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		defer cancel()

		return client.CodeAt(callCtx, common.HexToAddress(address), nil)
	})
	if err != nil {
		return nil, err
	}

	return code.([]byte), nil
}

func (g *ethGateway) EstimateGas(
	ctx context.Context, network, from, to string, data []byte,
) (uint64, error) {
	pool, err := g.pool(network)
	if err != nil {
		return 0, err
	}

	toAddress := common.HexToAddress(to)
	gas, err := pool.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.EstimateGas(ctx, ethereum.CallMsg{
			From: common.HexToAddress(from),
			To:   &toAddress,
			Data: data,
		})
	})
	if err != nil {
		return 0, err
	}

	return gas.(uint64), nil
}

func (g *ethGateway) SuggestGasPrice(ctx context.Context, network string) (*big.Int, error) {
	pool, err := g.pool(network)
	if err != nil {
		return nil, err
	}

	price, err := pool.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, err
	}

	return price.(*big.Int), nil
}
