package blockwatcher

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/thrasher-corp/chainmonitor/models"
)

// BlockTracker watches the sequence of processed block numbers per network
// and flags gaps or irregularities: missed blocks, out-of-order blocks, and
// duplicates. It keeps a bounded history per network and, when storage is
// configured and the network opts in, persists missed block numbers.
type BlockTracker struct {
	mu          sync.Mutex
	history     map[string]*list.List
	historySize int
	storage     BlockStorage
}

// NewBlockTracker creates a tracker keeping at most historySize block
// numbers per network. storage may be nil, in which case missed blocks are
// only logged, never persisted.
func NewBlockTracker(historySize int, storage BlockStorage) *BlockTracker {
	if historySize <= 0 {
		historySize = 1
	}
	return &BlockTracker{
		history:     make(map[string]*list.List),
		historySize: historySize,
		storage:     storage,
	}
}

// RecordBlock records blockNumber as processed for network, logging and
// optionally persisting any missed blocks detected since the last call.
func (t *BlockTracker) RecordBlock(ctx context.Context, network *models.Network, blockNumber uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	history, ok := t.history[network.Slug]
	if !ok {
		history = list.New()
		t.history[network.Slug] = history
	}

	if back := history.Back(); back != nil {
		lastBlock := back.Value.(uint64)
		switch {
		case blockNumber > lastBlock+1:
			for missed := lastBlock + 1; missed < blockNumber; missed++ {
				BlockTrackerError(fmt.Sprintf("missed block %d on network %s", missed, network.Slug))
				if network.ShouldStoreBlocks() && t.storage != nil {
					if err := t.storage.SaveMissedBlock(ctx, network.Slug, missed); err != nil {
						StorageError(fmt.Sprintf("failed to store missed block %d for network %s", missed, network.Slug), err)
					}
				}
			}
		case blockNumber <= lastBlock:
			BlockTrackerError(fmt.Sprintf("out of order or duplicate block detected for network %s: received %d after %d",
				network.Slug, blockNumber, lastBlock))
		}
	}

	history.PushBack(blockNumber)
	for history.Len() > t.historySize {
		history.Remove(history.Front())
	}
}

// GetLastBlock returns the most recently recorded block number for
// networkSlug and whether any block has been recorded yet.
func (t *BlockTracker) GetLastBlock(networkSlug string) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	history, ok := t.history[networkSlug]
	if !ok || history.Len() == 0 {
		return 0, false
	}
	return history.Back().Value.(uint64), true
}
