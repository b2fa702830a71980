package blockchain

import (
	"context"

	"github.com/thrasher-corp/chainmonitor/models"
)

// SolanaClient mirrors the Midnight stub: Solana has no decoder yet.
type SolanaClient struct {
	network *models.Network
}

func NewSolanaClient(network *models.Network) *SolanaClient {
	return &SolanaClient{network: network}
}

func (c *SolanaClient) Network() *models.Network { return c.network }

func (c *SolanaClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return 0, InternalError("Solana support is not implemented yet")
}

func (c *SolanaClient) GetBlocks(ctx context.Context, start, end uint64) ([]models.BlockType, error) {
	return nil, InternalError("Solana support is not implemented yet")
}
