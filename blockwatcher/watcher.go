package blockwatcher

import (
	"context"
	"fmt"

	"github.com/thrasher-corp/chainmonitor/blockchain"
	"github.com/thrasher-corp/chainmonitor/models"
)

// BlockWatcher runs the per-network polling loop: fetch the confirmed
// range since the last persisted height, fetch the blocks, and push them
// onto the shared block channel in ascending order (spec.md §4.4.2).
type BlockWatcher struct {
	network *models.Network
	client  blockchain.BlockChainClient
	storage BlockStorage
	blockCh chan<- *QueuedBlock
}

// QueuedBlock pairs a fetched block with the network and client that
// produced it, so a worker pulling from the shared channel does not need a
// side lookup to know which chain a block belongs to.
type QueuedBlock struct {
	Network *models.Network
	Client  blockchain.BlockChainClient
	Block   models.BlockType
}

// NewBlockWatcher constructs a watcher for network, pushing fetched blocks
// onto blockCh.
func NewBlockWatcher(network *models.Network, client blockchain.BlockChainClient, storage BlockStorage, blockCh chan<- *QueuedBlock) *BlockWatcher {
	return &BlockWatcher{network: network, client: client, storage: storage, blockCh: blockCh}
}

// Poll runs a single tick of the scheduling algorithm: compute the
// contiguous range to fetch, fetch it, enqueue each block in order, and
// persist the new last-processed height. It returns early (without error)
// when there is nothing new to fetch.
func (w *BlockWatcher) Poll(ctx context.Context) error {
	latest, err := w.client.LatestBlockNumber(ctx)
	if err != nil {
		return NetworkError("failed to fetch latest block number for " + w.network.Slug + ": " + err.Error())
	}
	if latest < w.network.ConfirmationBlock {
		return nil
	}
	confirmed := latest - w.network.ConfirmationBlock

	last, ok, err := w.storage.GetLastProcessed(ctx, w.network.Slug)
	if err != nil {
		return StorageError("failed to load last processed block for "+w.network.Slug, err)
	}
	if !ok {
		if confirmed == 0 {
			return nil
		}
		last = confirmed - 1
	}

	start := last + 1
	end := confirmed
	if w.network.MaxPastBlocks != nil && *w.network.MaxPastBlocks > 0 && *w.network.MaxPastBlocks-1 < end {
		oldestAllowed := end - *w.network.MaxPastBlocks + 1
		if start < oldestAllowed {
			start = oldestAllowed
		}
	}
	if start > end {
		return nil
	}

	blocks, err := w.client.GetBlocks(ctx, start, end)
	if err != nil {
		return NetworkError(fmt.Sprintf("failed to fetch blocks [%d,%d] for %s: %v", start, end, w.network.Slug, err))
	}

	for _, block := range blocks {
		queued := &QueuedBlock{Network: w.network, Client: w.client, Block: block}
		select {
		case w.blockCh <- queued:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := w.storage.SaveLastProcessed(ctx, w.network.Slug, end); err != nil {
		return StorageError("failed to persist last processed block for "+w.network.Slug, err)
	}
	return nil
}
