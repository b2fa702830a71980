package blockchain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/transport"
)

// stellarPageLimit is the Soroban RPC's maximum page size for getTransactions
// and getEvents.
const stellarPageLimit = 200

// StellarClient talks to a Soroban RPC endpoint (spec.md §4.1).
type StellarClient struct {
	network   *models.Network
	transport rpcCarrier
}

// NewStellarClient constructs a StellarClient over an HTTP carrier using the
// network's weighted "rpc" URLs (Soroban RPC, not Horizon).
func NewStellarClient(ctx context.Context, network *models.Network) (*StellarClient, error) {
	t, err := transport.NewHTTPTransport(ctx, network, models.RPCURLTypeRPC, nil)
	if err != nil {
		return nil, ConnectionError(err.Error())
	}
	return NewStellarClientWithTransport(network, t), nil
}

func NewStellarClientWithTransport(network *models.Network, t rpcCarrier) *StellarClient {
	return &StellarClient{network: network, transport: t}
}

func (c *StellarClient) Network() *models.Network { return c.network }

type stellarLatestLedgerResult struct {
	Sequence uint64 `json:"sequence"`
}

// LatestBlockNumber implements BlockChainClient via getLatestLedger.
func (c *StellarClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	raw, err := c.transport.SendRawRequest(ctx, "getLatestLedger", map[string]interface{}{})
	if err != nil {
		return 0, RequestError(err.Error())
	}
	var res stellarLatestLedgerResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return 0, RequestError("malformed getLatestLedger response: " + err.Error())
	}
	return res.Sequence, nil
}

type stellarTxInfo struct {
	Hash            string `json:"txHash"`
	Status          string `json:"status"`
	Ledger          uint64 `json:"ledger"`
	LedgerCloseTime uint64 `json:"ledgerCloseTime,string"`
}

type stellarGetTransactionsResult struct {
	Transactions []stellarTxInfo `json:"transactions"`
	Cursor       string          `json:"cursor"`
}

type stellarEventInfo struct {
	TxHash          string            `json:"txHash"`
	ContractID      string            `json:"contractId"`
	Topic           []json.RawMessage `json:"topic"`
	Value           json.RawMessage   `json:"value"`
	Ledger          uint64            `json:"ledger"`
}

type stellarGetEventsResult struct {
	Events []stellarEventInfo `json:"events"`
	Cursor string             `json:"cursor"`
}

// GetBlocks implements BlockChainClient: fetches transactions and events for
// the inclusive ledger range, paginating at 200 entries per RPC call, and
// groups them by ledger sequence into StellarLedger values ordered
// ascending (spec.md §4.1, §8 quantified property).
func (c *StellarClient) GetBlocks(ctx context.Context, start, end uint64) ([]models.BlockType, error) {
	if start > end {
		return nil, InternalError(fmt.Sprintf("invalid range: start %d > end %d", start, end))
	}

	txs, err := c.getTransactions(ctx, start, end)
	if err != nil {
		return nil, err
	}
	events, err := c.getEvents(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byLedger := make(map[uint64]*models.StellarLedger, end-start+1)
	order := make([]uint64, 0, end-start+1)
	ensure := func(seq uint64) *models.StellarLedger {
		l, ok := byLedger[seq]
		if !ok {
			l = &models.StellarLedger{Sequence: seq}
			byLedger[seq] = l
			order = append(order, seq)
		}
		return l
	}

	for _, tx := range txs {
		l := ensure(tx.LedgerSeq)
		l.Transactions = append(l.Transactions, tx)
	}
	for _, ev := range events {
		l := ensure(ev.ledgerSeq)
		l.Events = append(l.Events, ev.event)
	}

	// Ensure every height in range is present, even with no activity, so
	// the tracker sees a contiguous sequence (spec.md §4.4.1).
	for n := start; n <= end; n++ {
		ensure(n)
	}

	result := make([]models.BlockType, end-start+1)
	for n := start; n <= end; n++ {
		result[n-start] = byLedger[n]
	}
	return result, nil
}

func (c *StellarClient) getTransactions(ctx context.Context, start, end uint64) ([]models.StellarTransaction, error) {
	var out []models.StellarTransaction
	cursor := start
	for cursor <= end {
		raw, err := c.transport.SendRawRequest(ctx, "getTransactions", map[string]interface{}{
			"startLedger": cursor,
			"pagination":  map[string]interface{}{"limit": stellarPageLimit},
		})
		if err != nil {
			return nil, RequestError(fmt.Sprintf("failed to fetch transactions for ledger range %d-%d: %v", cursor, end, err))
		}
		var res stellarGetTransactionsResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, RequestError("failed to parse transaction response: " + err.Error())
		}
		if len(res.Transactions) == 0 {
			break
		}
		last := cursor
		for _, t := range res.Transactions {
			if t.Ledger > end {
				continue
			}
			out = append(out, models.StellarTransaction{
				Hash:      t.Hash,
				Status:    t.Status,
				LedgerSeq: t.Ledger,
			})
			if t.Ledger > last {
				last = t.Ledger
			}
		}
		if last <= cursor {
			break
		}
		cursor = last + 1
	}
	return out, nil
}

type stellarRawEvent struct {
	event     models.StellarEvent
	ledgerSeq uint64
}

func (c *StellarClient) getEvents(ctx context.Context, start, end uint64) ([]stellarRawEvent, error) {
	var out []stellarRawEvent
	cursor := start
	for cursor <= end {
		raw, err := c.transport.SendRawRequest(ctx, "getEvents", map[string]interface{}{
			"startLedger": cursor,
			"pagination":  map[string]interface{}{"limit": stellarPageLimit},
		})
		if err != nil {
			return nil, RequestError(fmt.Sprintf("failed to fetch events for ledger range %d-%d: %v", cursor, end, err))
		}
		var res stellarGetEventsResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, RequestError("failed to parse event response: " + err.Error())
		}
		if len(res.Events) == 0 {
			break
		}
		last := cursor
		for _, e := range res.Events {
			if e.Ledger > end {
				continue
			}
			topics := make([]models.StellarScVal, 0, len(e.Topic))
			for _, t := range e.Topic {
				topics = append(topics, models.StellarScVal{Kind: "raw", Value: json.RawMessage(t)})
			}
			out = append(out, stellarRawEvent{
				ledgerSeq: e.Ledger,
				event: models.StellarEvent{
					TxHash:          e.TxHash,
					ContractAddress: e.ContractID,
					Topics:          topics,
					Data:            models.StellarScVal{Kind: "raw", Value: e.Value},
				},
			})
			if e.Ledger > last {
				last = e.Ledger
			}
		}
		if last <= cursor {
			break
		}
		cursor = last + 1
	}
	return out, nil
}
