package blockwatcher

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/thrasher-corp/chainmonitor/blockchain"
	"github.com/thrasher-corp/chainmonitor/filter"
	"github.com/thrasher-corp/chainmonitor/models"
)

// FilterService dispatches a fetched block to the chain-specific filter
// implementation, keeping the block handler ignorant of per-chain decoding
// details (spec.md §4.4.3 step 2).
type FilterService interface {
	FilterBlock(ctx context.Context, client blockchain.BlockChainClient, network *models.Network, block models.BlockType, monitors []models.Monitor) ([]models.MonitorMatch, error)
}

// receiptFetcher is satisfied structurally by *blockchain.EvmClient; it
// exists here only so FilterBlock can assert the receipt-fetching method
// out of the narrower BlockChainClient interface.
type receiptFetcher interface {
	GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error)
}

// DefaultFilterService wires the EVM, Stellar, and Midnight filters behind
// the chain-agnostic FilterService contract. Solana has no filter yet and
// always returns an empty result.
type DefaultFilterService struct {
	evm      *filter.EVMBlockFilter
	stellar  *filter.StellarBlockFilter
	midnight *filter.MidnightBlockFilter
}

func NewDefaultFilterService() *DefaultFilterService {
	return &DefaultFilterService{
		evm:      filter.NewEVMBlockFilter(),
		stellar:  &filter.StellarBlockFilter{},
		midnight: &filter.MidnightBlockFilter{},
	}
}

func (s *DefaultFilterService) FilterBlock(ctx context.Context, client blockchain.BlockChainClient, network *models.Network, block models.BlockType, monitors []models.Monitor) ([]models.MonitorMatch, error) {
	switch b := block.(type) {
	case *models.EVMBlock:
		fetcher, ok := client.(receiptFetcher)
		if !ok {
			return nil, InternalError("evm client does not support receipt fetching")
		}
		return s.evm.FilterBlock(ctx, fetcher, network, b, monitors)
	case *models.StellarLedger:
		return s.stellar.FilterBlock(network, b, monitors)
	case *models.MidnightBlock:
		return s.midnight.FilterBlock(network, b, monitors)
	default:
		return nil, nil
	}
}
