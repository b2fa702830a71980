package blockchain

import (
	"context"

	"github.com/thrasher-corp/chainmonitor/models"
)

// BlockChainClient is the uniform contract the block pipeline drives
// regardless of chain kind (spec.md §4.1, §REDESIGN FLAGS: expressed as a
// small interface rather than unifying block/transaction shapes).
type BlockChainClient interface {
	// Network returns the network this client is bound to.
	Network() *models.Network
	// LatestBlockNumber returns the chain's current head height.
	LatestBlockNumber(ctx context.Context) (uint64, error)
	// GetBlocks returns blocks with heights start..=end, ordered
	// ascending. Implementations may fetch in parallel internally but must
	// preserve order on return (spec.md §8 quantified property). An
	// implementation may return a shorter ascending prefix when a block
	// near the tail of the range is not available (EvmClient does).
	GetBlocks(ctx context.Context, start, end uint64) ([]models.BlockType, error)
}
