package eth

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs-ent/starglow-sub013/config"
	"github.com/rs-ent/starglow-sub013/pkg/crypto"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

const (
	RpcTimeOut      = time.Second * 5
	MaxShuffleTimes = 20
)

// networkPool keeps one connection per configured RPC of a network and only
// hands out the ones observed to be healthy. RPC endpoints are often
// unstable, so every call may land on a different endpoint.
type networkPool struct {
	name      string
	chainID   *big.Int
	blockTime int
	allRpcs   []string

	clients   []*ethclient.Client
	healthies []bool
	rpcs      []string

	mutex sync.RWMutex
}

func newNetworkPool(cfg config.NetworkConfigs) *networkPool {
	return &networkPool{
		name:      cfg.Name,
		chainID:   big.NewInt(cfg.ChainID),
		blockTime: cfg.BlockTime,
		allRpcs:   cfg.RPCs,
	}
}

func (p *networkPool) start(ctx context.Context) {
	for {
		time.Sleep(xcontext.Configs(ctx).Blockchain.RefreshConnectionFrequency)
		p.updateRpcs(ctx)
	}
}

func (p *networkPool) updateRpcs(ctx context.Context) {
	p.mutex.RLock()
	oldClients := p.clients
	p.mutex.RUnlock()

	rpcs, clients, healthies := p.healthyRpcs(ctx, p.allRpcs)

	p.mutex.Lock()
	for _, client := range oldClients {
		client.Close()
	}

	p.rpcs, p.clients, p.healthies = rpcs, clients, healthies
	p.mutex.Unlock()
}

func (p *networkPool) healthyRpcs(
	ctx context.Context, allRpcs []string,
) ([]string, []*ethclient.Client, []bool) {
	type healthyNode struct {
		client *ethclient.Client
		rpc    string
		height int64
	}

	nodes := make([]*healthyNode, 0)
	for _, rpc := range allRpcs {
		client, err := ethclient.Dial(rpc)
		if err != nil {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		block, err := client.BlockByNumber(callCtx, nil)
		cancel()

		if err != nil || block.Number() == nil {
			client.Close()
			continue
		}

		nodes = append(nodes, &healthyNode{
			client: client,
			rpc:    rpc,
			height: block.Number().Int64(),
		})
	}

	rpcs := make([]string, 0)
	clients := make([]*ethclient.Client, 0)
	healthies := make([]bool, 0)
	if len(nodes) == 0 {
		return rpcs, clients, healthies
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].height > nodes[j].height
	})

	// Only keep nodes within a few blocks of the median height; a node far
	// behind would answer ownership queries with stale state.
	height := nodes[len(nodes)/2].height
	for _, node := range nodes {
		diff := node.height - height
		if diff < 0 {
			diff = -diff
		}

		if diff < 5 {
			rpcs = append(rpcs, node.rpc)
			clients = append(clients, node.client)
			healthies = append(healthies, true)
		} else {
			node.client.Close()
		}
	}

	xcontext.Logger(ctx).Infof("Healthy rpcs for network %s: %s", p.name, rpcs)

	return rpcs, clients, healthies
}

func (p *networkPool) shuffle() ([]*ethclient.Client, []bool, []string) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	n := len(p.clients)
	if n == 0 {
		return nil, nil, nil
	}

	clients := make([]*ethclient.Client, n)
	healthy := make([]bool, n)
	rpcs := make([]string, n)

	copy(clients, p.clients)
	copy(healthy, p.healthies)
	copy(rpcs, p.rpcs)

	for i := 0; i < MaxShuffleTimes; i++ {
		x := crypto.RandIntn(n)
		y := crypto.RandIntn(n)

		clients[x], clients[y] = clients[y], clients[x]
		healthy[x], healthy[y] = healthy[y], healthy[x]
		rpcs[x], rpcs[y] = rpcs[y], rpcs[x]
	}

	return clients, healthy, rpcs
}

func (p *networkPool) healthyClient(ctx context.Context) (*ethclient.Client, string) {
	p.mutex.RLock()
	uninitialized := p.clients == nil
	p.mutex.RUnlock()

	if uninitialized {
		p.updateRpcs(ctx)
	}

	clients, healthies, rpcs := p.shuffle()
	for i, healthy := range healthies {
		if healthy {
			return clients[i], rpcs[i]
		}
	}

	return nil, ""
}

func (p *networkPool) execute(
	ctx context.Context, f func(client *ethclient.Client, rpc string) (any, error),
) (any, error) {
	client, rpc := p.healthyClient(ctx)
	if client == nil {
		return nil, fmt.Errorf("no healthy RPC for network %s", p.name)
	}

	return f(client, rpc)
}
