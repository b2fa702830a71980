package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/thrasher-corp/chainmonitor/common/convert"
	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/transport"
)

// rpcCarrier is the subset of transport.BlockchainTransport an EVM client
// needs; satisfied by both transport.HTTPTransport and transport.WSTransport.
type rpcCarrier interface {
	SendRawRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
	CurrentURL(ctx context.Context) string
}

// EvmClient talks to an EVM-compatible chain over a JSON-RPC carrier
// (spec.md §4.1). It wraps go-ethereum's wire types for blocks, transactions
// and receipts rather than reinventing them.
type EvmClient struct {
	network   *models.Network
	transport rpcCarrier
}

// NewEvmClient constructs an EvmClient backed by an HTTP carrier, probing
// and rotating over the network's weighted "rpc" URLs.
func NewEvmClient(ctx context.Context, network *models.Network) (*EvmClient, error) {
	t, err := transport.NewHTTPTransport(ctx, network, models.RPCURLTypeRPC, nil)
	if err != nil {
		return nil, ConnectionError(err.Error())
	}
	return NewEvmClientWithTransport(network, t), nil
}

// NewEvmClientWithTransport lets callers (and tests) supply an arbitrary
// carrier, e.g. a WebSocket transport or a fake.
func NewEvmClientWithTransport(network *models.Network, t rpcCarrier) *EvmClient {
	return &EvmClient{network: network, transport: t}
}

func (c *EvmClient) Network() *models.Network { return c.network }

// LatestBlockNumber implements BlockChainClient.
func (c *EvmClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	raw, err := c.transport.SendRawRequest(ctx, "eth_blockNumber", []interface{}{})
	if err != nil {
		return 0, RequestError(err.Error())
	}
	var hexNum string
	if err := json.Unmarshal(raw, &hexNum); err != nil {
		return 0, RequestError("malformed eth_blockNumber response: " + err.Error())
	}
	n, err := convert.HexToUint64(hexNum)
	if err != nil {
		return 0, RequestError("malformed block number: " + err.Error())
	}
	return n, nil
}

// rpcTransaction mirrors only the JSON-RPC fields go-ethereum's
// types.Transaction JSON codec does not carry: the sender, populated by the
// node instead of being derivable from the tx body without signer recovery.
type rpcTransaction struct {
	Hash string  `json:"hash"`
	From string  `json:"from"`
	To   *string `json:"to"`
}

type rpcBlock struct {
	Number       string            `json:"number"`
	Hash         string            `json:"hash"`
	ParentHash   string            `json:"parentHash"`
	Timestamp    string            `json:"timestamp"`
	Transactions []json.RawMessage `json:"transactions"`
}

// GetBlocks implements BlockChainClient. It fetches each height in the
// inclusive range individually via eth_getBlockByNumber(hex, true); a
// missing block at the tail stops the range early (spec.md §4.4.1) rather
// than erroring the whole call.
func (c *EvmClient) GetBlocks(ctx context.Context, start, end uint64) ([]models.BlockType, error) {
	if start > end {
		return nil, InternalError(fmt.Sprintf("invalid range: start %d > end %d", start, end))
	}

	blocks := make([]models.BlockType, 0, end-start+1)
	for n := start; n <= end; n++ {
		blk, err := c.getBlockByNumber(ctx, n)
		if err != nil {
			if n == end {
				return blocks, err
			}
			break
		}
		if blk == nil {
			break
		}
		blocks = append(blocks, blk)
	}
	return blocks, nil
}

func (c *EvmClient) getBlockByNumber(ctx context.Context, number uint64) (*models.EVMBlock, error) {
	hexNum := "0x" + strconv.FormatUint(number, 16)
	raw, err := c.transport.SendRawRequest(ctx, "eth_getBlockByNumber", []interface{}{hexNum, true})
	if err != nil {
		return nil, RequestError(err.Error())
	}
	if string(raw) == "null" {
		return nil, nil
	}

	var rb rpcBlock
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, RequestError("malformed block response: " + err.Error())
	}

	num, err := convert.HexToUint64(rb.Number)
	if err != nil {
		return nil, InternalError("malformed block number in response: " + err.Error())
	}
	ts, _ := convert.HexToUint64(rb.Timestamp)

	txs := make([]*types.Transaction, 0, len(rb.Transactions))
	fromAddrs := make(map[string]string, len(rb.Transactions))
	toAddrs := make(map[string]string, len(rb.Transactions))
	for _, raw := range rb.Transactions {
		var tx types.Transaction
		if err := tx.UnmarshalJSON(raw); err != nil {
			continue
		}
		var meta rpcTransaction
		if err := json.Unmarshal(raw, &meta); err == nil {
			h := meta.Hash
			if h == "" {
				h = tx.Hash().Hex()
			}
			if meta.From != "" {
				fromAddrs[h] = strings.ToLower(meta.From)
			}
			if meta.To != nil {
				toAddrs[h] = strings.ToLower(*meta.To)
			} else if tx.To() != nil {
				toAddrs[h] = strings.ToLower(tx.To().Hex())
			}
		}
		txs = append(txs, &tx)
	}

	return &models.EVMBlock{
		NumberValue:  num,
		Hash:         rb.Hash,
		ParentHash:   rb.ParentHash,
		Timestamp:    ts,
		Transactions: txs,
		FromAddrs:    fromAddrs,
		ToAddrs:      toAddrs,
	}, nil
}

// GetTransactionReceipt fetches a single transaction's receipt (spec.md
// §4.3.1: receipt-fetch failures are recovered locally by dropping just
// that transaction, not the whole block).
func (c *EvmClient) GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error) {
	if !common.IsHexAddress(hash) && len(hash) != 66 {
		return nil, InternalError("invalid transaction hash: " + hash)
	}
	raw, err := c.transport.SendRawRequest(ctx, "eth_getTransactionReceipt", []interface{}{hash})
	if err != nil {
		return nil, RequestError(err.Error())
	}
	if string(raw) == "null" {
		return nil, RequestError("receipt not found for " + hash)
	}
	var receipt types.Receipt
	if err := receipt.UnmarshalJSON(raw); err != nil {
		return nil, RequestError("malformed receipt response: " + err.Error())
	}
	return &receipt, nil
}

// GetLogsForBlocks fetches logs across a block range via eth_getLogs.
func (c *EvmClient) GetLogsForBlocks(ctx context.Context, from, to uint64) ([]types.Log, error) {
	raw, err := c.transport.SendRawRequest(ctx, "eth_getLogs", []interface{}{map[string]string{
		"fromBlock": "0x" + strconv.FormatUint(from, 16),
		"toBlock":   "0x" + strconv.FormatUint(to, 16),
	}})
	if err != nil {
		return nil, RequestError(err.Error())
	}
	var logs []types.Log
	if err := json.Unmarshal(raw, &logs); err != nil {
		return nil, RequestError("malformed logs response: " + err.Error())
	}
	return logs, nil
}
