package blockchain

import (
	"context"

	"github.com/thrasher-corp/chainmonitor/models"
)

// MidnightClient is an explicit stub (spec.md §10 supplemented features):
// the upstream RPC shape is not decodable yet, so every call returns an
// internal error rather than silently returning empty data.
type MidnightClient struct {
	network *models.Network
}

func NewMidnightClient(network *models.Network) *MidnightClient {
	return &MidnightClient{network: network}
}

func (c *MidnightClient) Network() *models.Network { return c.network }

func (c *MidnightClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return 0, InternalError("Midnight support is not implemented yet")
}

func (c *MidnightClient) GetBlocks(ctx context.Context, start, end uint64) ([]models.BlockType, error) {
	return nil, InternalError("Midnight support is not implemented yet")
}
