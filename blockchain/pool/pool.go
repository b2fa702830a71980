// Package pool implements the type-erased, reference-counted cache of chain
// clients keyed by chain kind and network slug (spec.md §4.1, grounded on
// the teacher's double-checked-locking client construction and on
// original_source's services/blockchain/pool.rs).
package pool

import (
	"context"
	"sync"

	"github.com/thrasher-corp/chainmonitor/blockchain"
	"github.com/thrasher-corp/chainmonitor/models"
)

type clientStorage struct {
	mu      sync.RWMutex
	clients map[string]blockchain.BlockChainClient
}

func newClientStorage() *clientStorage {
	return &clientStorage{clients: make(map[string]blockchain.BlockChainClient)}
}

// ClientPool lazily constructs and caches one client per (chain kind,
// network slug) pair. Construction uses a fast read-locked path for the
// common case of an already-cached client and a write-locked slow path the
// first time a network is seen.
type ClientPool struct {
	storages map[models.BlockChainType]*clientStorage
}

// New creates an empty pool with storage registered for every known chain
// kind.
func New() *ClientPool {
	p := &ClientPool{storages: make(map[models.BlockChainType]*clientStorage)}
	for _, t := range []models.BlockChainType{models.EVM, models.Stellar, models.Midnight, models.Solana} {
		p.storages[t] = newClientStorage()
	}
	return p
}

func (p *ClientPool) getOrCreate(ctx context.Context, chainType models.BlockChainType, network *models.Network, create func() (blockchain.BlockChainClient, error)) (blockchain.BlockChainClient, error) {
	storage, ok := p.storages[chainType]
	if !ok {
		return nil, blockchain.ClientPoolError("invalid client type: " + string(chainType))
	}

	storage.mu.RLock()
	if c, ok := storage.clients[network.Slug]; ok {
		storage.mu.RUnlock()
		return c, nil
	}
	storage.mu.RUnlock()

	storage.mu.Lock()
	defer storage.mu.Unlock()
	if c, ok := storage.clients[network.Slug]; ok {
		return c, nil
	}
	client, err := create()
	if err != nil {
		return nil, blockchain.ClientPoolError(err.Error())
	}
	storage.clients[network.Slug] = client
	return client, nil
}

// GetEvmClient returns the cached EvmClient for network, creating one on
// first use.
func (p *ClientPool) GetEvmClient(ctx context.Context, network *models.Network) (*blockchain.EvmClient, error) {
	c, err := p.getOrCreate(ctx, models.EVM, network, func() (blockchain.BlockChainClient, error) {
		return blockchain.NewEvmClient(ctx, network)
	})
	if err != nil {
		return nil, err
	}
	return c.(*blockchain.EvmClient), nil
}

// GetStellarClient returns the cached StellarClient for network, creating
// one on first use.
func (p *ClientPool) GetStellarClient(ctx context.Context, network *models.Network) (*blockchain.StellarClient, error) {
	c, err := p.getOrCreate(ctx, models.Stellar, network, func() (blockchain.BlockChainClient, error) {
		return blockchain.NewStellarClient(ctx, network)
	})
	if err != nil {
		return nil, err
	}
	return c.(*blockchain.StellarClient), nil
}

// GetClient returns the generic BlockChainClient for network, dispatching
// on its configured chain kind.
func (p *ClientPool) GetClient(ctx context.Context, network *models.Network) (blockchain.BlockChainClient, error) {
	switch network.NetworkType {
	case models.EVM:
		return p.GetEvmClient(ctx, network)
	case models.Stellar:
		return p.GetStellarClient(ctx, network)
	case models.Midnight:
		return p.getOrCreate(ctx, models.Midnight, network, func() (blockchain.BlockChainClient, error) {
			return blockchain.NewMidnightClient(network), nil
		})
	case models.Solana:
		return p.getOrCreate(ctx, models.Solana, network, func() (blockchain.BlockChainClient, error) {
			return blockchain.NewSolanaClient(network), nil
		})
	default:
		return nil, blockchain.ClientPoolError("unknown chain type: " + string(network.NetworkType))
	}
}

// ClientCount returns the number of cached clients for the given chain kind,
// used by tests and diagnostics.
func (p *ClientPool) ClientCount(chainType models.BlockChainType) int {
	storage, ok := p.storages[chainType]
	if !ok {
		return 0
	}
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	return len(storage.clients)
}
