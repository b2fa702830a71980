package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	commoncache "github.com/thrasher-corp/chainmonitor/common/cache"
	"github.com/thrasher-corp/chainmonitor/models"
)

// abiCacheSize bounds the number of distinct monitored-address ABIs kept
// parsed in memory; contract ABIs rarely number in the thousands per
// process, so this comfortably covers real deployments without unbounded
// growth.
const abiCacheSize = 256

// receiptFetcher is the subset of EvmClient the filter needs, narrowed for
// testability.
type receiptFetcher interface {
	GetTransactionReceipt(ctx context.Context, hash string) (*types.Receipt, error)
}

// EVMBlockFilter implements the EVM arm of the filter contract (spec.md
// §4.3.1). The zero value is usable; abiCache lazily initializes on first
// use so existing &EVMBlockFilter{} call sites keep working.
type EVMBlockFilter struct {
	abiCacheOnce sync.Once
	abiCache     *commoncache.Cache
}

// NewEVMBlockFilter returns a ready-to-use EVMBlockFilter with its ABI
// cache pre-initialized.
func NewEVMBlockFilter() *EVMBlockFilter {
	f := &EVMBlockFilter{}
	f.cache()
	return f
}

func (f *EVMBlockFilter) cache() *commoncache.Cache {
	f.abiCacheOnce.Do(func() {
		f.abiCache = commoncache.New(abiCacheSize)
	})
	return f.abiCache
}

// FilterBlock fetches receipts for every transaction in parallel (dropping
// fetch failures with a warning) and evaluates every (monitor, transaction)
// pair against the monitor's MatchConditions.
func (f *EVMBlockFilter) FilterBlock(ctx context.Context, client receiptFetcher, network *models.Network, block *models.EVMBlock, monitors []models.Monitor) ([]models.MonitorMatch, error) {
	receipts := f.fetchReceipts(ctx, client, block)

	var matches []models.MonitorMatch
	for _, monitor := range monitors {
		if !monitor.IsActive() || !monitor.AppliesToNetwork(network.Slug) {
			continue
		}
		for _, tx := range block.Transactions {
			hash := tx.Hash().Hex()
			receipt, ok := receipts[hash]
			if !ok {
				continue
			}
			match, ok := f.evaluate(monitor, tx, receipt, block)
			if ok {
				matches = append(matches, match)
			}
		}
	}
	return matches, nil
}

func (f *EVMBlockFilter) fetchReceipts(ctx context.Context, client receiptFetcher, block *models.EVMBlock) map[string]*types.Receipt {
	out := make(map[string]*types.Receipt, len(block.Transactions))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, tx := range block.Transactions {
		tx := tx
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash := tx.Hash().Hex()
			receipt, err := client.GetTransactionReceipt(ctx, hash)
			if err != nil {
				log.Warnw("filter: dropping transaction with unfetchable receipt", "hash", hash, "error", err)
				return
			}
			mu.Lock()
			out[hash] = receipt
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

func (f *EVMBlockFilter) evaluate(monitor models.Monitor, tx *types.Transaction, receipt *types.Receipt, block *models.EVMBlock) (*models.EVMMonitorMatch, bool) {
	hash := tx.Hash().Hex()
	from := block.FromAddrs[hash]
	to := block.ToAddrs[hash]
	if to == "" && tx.To() != nil {
		to = strings.ToLower(tx.To().Hex())
	}

	txStatus := models.StatusFailure
	if receipt.Status == types.ReceiptStatusSuccessful {
		txStatus = models.StatusSuccess
	}

	involved := involvedAddresses(from, to)
	for _, l := range receipt.Logs {
		involved[NormalizeAddress(l.Address.Hex())] = struct{}{}
	}

	monitoredAddrs := make([]string, len(monitor.Addresses))
	for i, a := range monitor.Addresses {
		monitoredAddrs[i] = a.Address
	}
	if !hasAddressMatch(involved, monitoredAddrs) {
		return nil, false
	}

	conds := monitor.MatchConditions

	txBag := map[string]struct{ value, kind string }{
		"value": {tx.Value().String(), "uint256"},
		"from":  {from, "address"},
		"to":    {to, "address"},
		"hash":  {hash, "string"},
	}
	txLookup := func(name string) (string, string, bool) {
		e, ok := txBag[name]
		if !ok {
			return "", "", false
		}
		return e.value, e.kind, true
	}

	ht, matchedTx := matchTransactionCondition(conds.Transactions, txStatus, txLookup)

	events, matchedEvents := f.matchEvents(monitor, conds.Events, receipt)
	functions, matchedFunctions := f.matchFunctions(monitor, conds.Functions, tx)

	ha := len(conds.Events) > 0 && len(matchedEvents) > 0
	hf := len(conds.Functions) > 0 && len(matchedFunctions) > 0

	if !combineMatch(len(conds.Transactions) == 0, len(conds.Functions) == 0, len(conds.Events) == 0, ht, hf, ha) {
		return nil, false
	}

	matchedOn := models.MatchConditions{}
	if matchedTx != nil {
		matchedOn.Transactions = []models.TransactionCondition{*matchedTx}
	}
	matchedOn.Events = matchedEvents
	matchedOn.Functions = matchedFunctions

	return &models.EVMMonitorMatch{
		Monitor:     monitor.WithoutABIs(),
		Transaction: tx,
		From:        from,
		Receipt:     receipt,
		MatchedOn:   matchedOn,
		MatchedOnArgs: &models.EVMMatchArguments{
			Events:    events,
			Functions: functions,
		},
	}, true
}

func matchTransactionCondition(conds []models.TransactionCondition, status models.TransactionStatus, lookup ParamLookup) (bool, *models.TransactionCondition) {
	if len(conds) == 0 {
		return true, nil
	}
	for _, c := range conds {
		if c.Status != models.StatusAny && c.Status != status {
			continue
		}
		if c.Expression != nil && !EvaluateExpression(*c.Expression, lookup) {
			continue
		}
		c := c
		return true, &c
	}
	return false, nil
}

func (f *EVMBlockFilter) monitorABI(monitor models.Monitor, address string) (*ethabi.ABI, bool) {
	for _, a := range monitor.Addresses {
		if !AddressesEqual(a.Address, address) || a.ABI == nil {
			continue
		}
		parsed, err := f.parseABICached(a.ABI)
		if err != nil {
			log.Warnw("filter: invalid ABI on monitored address", "address", address, "error", err)
			return nil, false
		}
		return parsed, true
	}
	return nil, false
}

// parseABICached parses raw into an ethabi.ABI, reusing a previously
// parsed result keyed on the ABI's serialized JSON so the same contract
// ABI declared on many monitored addresses is only parsed once.
func (f *EVMBlockFilter) parseABICached(raw interface{}) (*ethabi.ABI, error) {
	jsonBytes, err := abiJSONBytes(raw)
	if err != nil {
		return nil, err
	}

	cache := f.cache()
	if cached, ok := cache.Get(string(jsonBytes)); ok {
		return cached.(*ethabi.ABI), nil
	}

	parsed, err := ethabi.JSON(bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, err
	}
	cache.Add(string(jsonBytes), &parsed)
	return &parsed, nil
}

func abiJSONBytes(raw interface{}) ([]byte, error) {
	switch v := raw.(type) {
	case string:
		return []byte(v), nil
	default:
		return jsonMarshal(v)
	}
}

func (f *EVMBlockFilter) matchEvents(monitor models.Monitor, conds []models.EventCondition, receipt *types.Receipt) ([]models.EVMMatchParamsMap, []models.EventCondition) {
	var decoded []models.EVMMatchParamsMap
	var matched []models.EventCondition
	if len(conds) == 0 {
		return nil, nil
	}
	for _, l := range receipt.Logs {
		parsedABI, ok := f.monitorABI(monitor, l.Address.Hex())
		if !ok || len(l.Topics) == 0 {
			continue
		}
		event, err := parsedABI.EventByID(l.Topics[0])
		if err != nil {
			continue
		}
		paramsMap, err := decodeEventLog(event, l)
		if err != nil {
			log.Warnw("filter: failed to decode event log", "event", event.Name, "error", err)
			continue
		}
		lookup := paramsMapLookup(paramsMap)
		for _, c := range conds {
			if !SignaturesEqual(c.Signature, paramsMap.Signature) {
				continue
			}
			if c.Expression != nil && !EvaluateExpression(*c.Expression, lookup) {
				continue
			}
			matched = append(matched, c)
			decoded = append(decoded, paramsMap)
			break
		}
	}
	return decoded, matched
}

func (f *EVMBlockFilter) matchFunctions(monitor models.Monitor, conds []models.FunctionCondition, tx *types.Transaction) ([]models.EVMMatchParamsMap, []models.FunctionCondition) {
	if len(conds) == 0 || tx.To() == nil || len(tx.Data()) < 4 {
		return nil, nil
	}
	parsedABI, ok := f.monitorABI(monitor, tx.To().Hex())
	if !ok {
		return nil, nil
	}
	var selector [4]byte
	copy(selector[:], tx.Data()[:4])
	method, err := parsedABI.MethodById(selector[:])
	if err != nil {
		return nil, nil
	}
	paramsMap, err := decodeFunctionCall(method, tx.Data()[4:])
	if err != nil {
		log.Warnw("filter: failed to decode function call", "method", method.Name, "error", err)
		return nil, nil
	}
	lookup := paramsMapLookup(paramsMap)

	var decoded []models.EVMMatchParamsMap
	var matched []models.FunctionCondition
	for _, c := range conds {
		if !SignaturesEqual(c.Signature, paramsMap.Signature) {
			continue
		}
		if c.Expression != nil && !EvaluateExpression(*c.Expression, lookup) {
			continue
		}
		matched = append(matched, c)
		decoded = append(decoded, paramsMap)
	}
	return decoded, matched
}

func paramsMapLookup(p models.EVMMatchParamsMap) ParamLookup {
	byName := make(map[string]models.EVMMatchParamEntry, len(p.Args))
	for _, a := range p.Args {
		byName[a.Name] = a
	}
	return func(name string) (string, string, bool) {
		e, ok := byName[name]
		if !ok {
			return "", "", false
		}
		return e.Value, e.Kind, true
	}
}


func decodeEventLog(event ethabi.Event, l *types.Log) (models.EVMMatchParamsMap, error) {
	nonIndexed := event.Inputs.NonIndexed()
	values, err := nonIndexed.Unpack(l.Data)
	if err != nil {
		return models.EVMMatchParamsMap{}, err
	}

	args := make([]models.EVMMatchParamEntry, 0, len(event.Inputs))
	topicIdx := 1
	dataIdx := 0
	for _, input := range event.Inputs {
		if input.Indexed {
			if topicIdx >= len(l.Topics) {
				continue
			}
			args = append(args, models.EVMMatchParamEntry{
				Name:    input.Name,
				Value:   decodeIndexedTopic(input.Type, l.Topics[topicIdx]),
				Kind:    input.Type.String(),
				Indexed: true,
			})
			topicIdx++
			continue
		}
		if dataIdx >= len(values) {
			continue
		}
		args = append(args, models.EVMMatchParamEntry{
			Name:  input.Name,
			Value: formatABIValue(values[dataIdx]),
			Kind:  input.Type.String(),
		})
		dataIdx++
	}

	return models.EVMMatchParamsMap{
		Signature:    event.Sig,
		Args:         args,
		HexSignature: event.ID.Hex(),
	}, nil
}

func decodeFunctionCall(method ethabi.Method, data []byte) (models.EVMMatchParamsMap, error) {
	values, err := method.Inputs.Unpack(data)
	if err != nil {
		return models.EVMMatchParamsMap{}, err
	}
	args := make([]models.EVMMatchParamEntry, len(method.Inputs))
	for i, input := range method.Inputs {
		args[i] = models.EVMMatchParamEntry{
			Name:  input.Name,
			Value: formatABIValue(values[i]),
			Kind:  input.Type.String(),
		}
	}
	return models.EVMMatchParamsMap{
		Signature:    method.Sig,
		Args:         args,
		HexSignature: common.Bytes2Hex(method.ID),
	}, nil
}

func decodeIndexedTopic(t ethabi.Type, topic common.Hash) string {
	switch t.T {
	case ethabi.AddressTy:
		return strings.ToLower(common.BytesToAddress(topic.Bytes()).Hex())
	case ethabi.UintTy, ethabi.IntTy:
		return models.WeiToString(topic.Big())
	case ethabi.BoolTy:
		return fmt.Sprintf("%t", topic.Big().Sign() != 0)
	default:
		return topic.Hex()
	}
}

func formatABIValue(v interface{}) string {
	switch t := v.(type) {
	case *big.Int:
		return t.String()
	case common.Address:
		return strings.ToLower(t.Hex())
	case [32]byte:
		return common.Bytes2Hex(t[:])
	case []byte:
		return common.Bytes2Hex(t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
