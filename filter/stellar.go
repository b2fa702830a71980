package filter

import (
	"fmt"
	"strings"

	"github.com/thrasher-corp/chainmonitor/models"
)

// StellarBlockFilter implements the Stellar arm of the filter contract
// (spec.md §4.3.2). Unlike the EVM filter, the client has already fetched
// transactions/events for the ledger range before FilterBlock runs, so this
// type operates purely on the decoded StellarLedger.
type StellarBlockFilter struct{}

// FilterBlock evaluates every (monitor, transaction) pair in ledger against
// the monitor's MatchConditions.
func (f *StellarBlockFilter) FilterBlock(network *models.Network, ledger *models.StellarLedger, monitors []models.Monitor) ([]models.MonitorMatch, error) {
	var matches []models.MonitorMatch
	for _, monitor := range monitors {
		if !monitor.IsActive() || !monitor.AppliesToNetwork(network.Slug) {
			continue
		}
		for _, tx := range ledger.Transactions {
			match, ok := f.evaluate(monitor, tx, ledger)
			if ok {
				matches = append(matches, match)
			}
		}
	}
	return matches, nil
}

func (f *StellarBlockFilter) evaluate(monitor models.Monitor, tx models.StellarTransaction, ledger *models.StellarLedger) (*models.StellarMonitorMatch, bool) {
	monitoredAddrs := make([]string, len(monitor.Addresses))
	for i, a := range monitor.Addresses {
		monitoredAddrs[i] = a.Address
	}

	involvedSet := involvedAddresses()
	for _, inv := range tx.Invocations {
		involvedSet[NormalizeAddress(inv.ContractAddress)] = struct{}{}
	}
	if !hasAddressMatch(involvedSet, monitoredAddrs) {
		return nil, false
	}

	status := models.StatusFailure
	if strings.EqualFold(tx.Status, "SUCCESS") {
		status = models.StatusSuccess
	}

	conds := monitor.MatchConditions
	txBag := map[string]struct{ value, kind string }{
		"hash": {tx.Hash, "string"},
	}
	txLookup := func(name string) (string, string, bool) {
		e, ok := txBag[name]
		if !ok {
			return "", "", false
		}
		return e.value, e.kind, true
	}
	ht, matchedTx := matchTransactionCondition(conds.Transactions, status, txLookup)

	functions, matchedFunctions := f.matchFunctions(monitor, conds.Functions, tx)
	events, matchedEvents := f.matchEvents(monitor, conds.Events, tx, ledger)

	ha := len(conds.Events) > 0 && len(matchedEvents) > 0
	hf := len(conds.Functions) > 0 && len(matchedFunctions) > 0

	if !combineMatch(len(conds.Transactions) == 0, len(conds.Functions) == 0, len(conds.Events) == 0, ht, hf, ha) {
		return nil, false
	}

	matchedOn := models.MatchConditions{Functions: matchedFunctions, Events: matchedEvents}
	if matchedTx != nil {
		matchedOn.Transactions = []models.TransactionCondition{*matchedTx}
	}

	return &models.StellarMonitorMatch{
		Monitor:     monitor.WithoutABIs(),
		Transaction: tx,
		Ledger:      ledger,
		MatchedOn:   matchedOn,
		MatchedOnArgs: &models.StellarMatchArguments{
			Functions: functions,
			Events:    events,
		},
	}, true
}

func (f *StellarBlockFilter) matchFunctions(monitor models.Monitor, conds []models.FunctionCondition, tx models.StellarTransaction) ([]models.StellarMatchParamsMap, []models.FunctionCondition) {
	if len(conds) == 0 {
		return nil, nil
	}
	var decoded []models.StellarMatchParamsMap
	var matched []models.FunctionCondition
	for _, inv := range tx.Invocations {
		if !monitorWatchesAddress(monitor, inv.ContractAddress) {
			continue
		}
		paramsMap := decodeStellarArgs(inv.FunctionName, inv.Args)
		lookup := stellarParamsLookup(paramsMap)
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
	}
	return decoded, matched
}

func (f *StellarBlockFilter) matchEvents(monitor models.Monitor, conds []models.EventCondition, tx models.StellarTransaction, ledger *models.StellarLedger) ([]models.StellarMatchParamsMap, []models.EventCondition) {
	if len(conds) == 0 {
		return nil, nil
	}
	var decoded []models.StellarMatchParamsMap
	var matched []models.EventCondition
	for _, ev := range ledger.Events {
		if ev.TxHash != tx.Hash || !monitorWatchesAddress(monitor, ev.ContractAddress) {
			continue
		}
		args := append(append([]models.StellarScVal{}, ev.Topics...), ev.Data)
		paramsMap := decodeStellarArgs("event", args)
		lookup := stellarParamsLookup(paramsMap)
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
	}
	return decoded, matched
}

func monitorWatchesAddress(monitor models.Monitor, address string) bool {
	for _, a := range monitor.Addresses {
		if AddressesEqual(a.Address, address) {
			return true
		}
	}
	return false
}

// decodeStellarArgs builds the positionally-keyed params map and signature
// used for Stellar function/event matching (spec.md §4.3.2 step 3).
func decodeStellarArgs(name string, args []models.StellarScVal) models.StellarMatchParamsMap {
	argMap := make(map[string]string, len(args))
	kindMap := make(map[string]string, len(args))
	kinds := make([]string, len(args))
	for i, a := range args {
		key := fmt.Sprintf("%d", i)
		argMap[key] = fmt.Sprintf("%v", a.Value)
		kindMap[key] = a.Kind
		kinds[i] = a.Kind
	}
	return models.StellarMatchParamsMap{
		Signature: fmt.Sprintf("%s(%s)", name, strings.Join(kinds, ",")),
		Args:      argMap,
		ArgKinds:  kindMap,
	}
}

func stellarParamsLookup(p models.StellarMatchParamsMap) ParamLookup {
	return func(name string) (string, string, bool) {
		v, ok := p.Args[name]
		if !ok {
			return "", "", false
		}
		return v, p.ArgKinds[name], true
	}
}
