package models

import "github.com/ethereum/go-ethereum/core/types"

// EVMMatchParamEntry is a single decoded function/event argument.
type EVMMatchParamEntry struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Kind    string `json:"kind"`
	Indexed bool   `json:"indexed"`
}

// EVMMatchParamsMap is the decoded shape of one matched function call or
// event: its normalized signature, decoded args, and (for events) the
// 32-byte topic-0 hex signature.
type EVMMatchParamsMap struct {
	Signature    string                `json:"signature"`
	Args         []EVMMatchParamEntry  `json:"args"`
	HexSignature string                `json:"hex_signature,omitempty"`
}

// EVMMatchArguments bundles the decoded events/functions carried alongside
// an EVM match, used to build the trigger interpolation context.
type EVMMatchArguments struct {
	Events    []EVMMatchParamsMap `json:"events,omitempty"`
	Functions []EVMMatchParamsMap `json:"functions,omitempty"`
}

// StellarMatchArguments mirrors EVMMatchArguments for Stellar matches. Args
// are keyed positionally ("0", "1", ...) per spec.md §4.3.2.
type StellarMatchArguments struct {
	Functions []StellarMatchParamsMap `json:"functions,omitempty"`
	Events    []StellarMatchParamsMap `json:"events,omitempty"`
}

// StellarMatchParamsMap is the Stellar analogue of EVMMatchParamsMap.
type StellarMatchParamsMap struct {
	Signature string            `json:"signature"`
	Args      map[string]string `json:"args"`
	ArgKinds  map[string]string `json:"arg_kinds"`
}

// EVMMonitorMatch is one monitor/transaction pair that satisfied an EVM
// monitor's match conditions.
type EVMMonitorMatch struct {
	Monitor       Monitor              `json:"monitor"`
	Transaction   *types.Transaction   `json:"transaction"`
	// From is the RPC-supplied sender address (go-ethereum's Transaction
	// carries no `from` without signer recovery; the node already gives it
	// to us in eth_getBlockByNumber's transaction objects).
	From          string               `json:"from,omitempty"`
	Receipt       *types.Receipt       `json:"receipt"`
	MatchedOn     MatchConditions      `json:"matched_on"`
	MatchedOnArgs *EVMMatchArguments   `json:"matched_on_args,omitempty"`
}

// StellarMonitorMatch is one monitor/transaction pair that satisfied a
// Stellar monitor's match conditions.
type StellarMonitorMatch struct {
	Monitor       Monitor                 `json:"monitor"`
	Transaction   StellarTransaction      `json:"transaction"`
	Ledger        *StellarLedger          `json:"ledger"`
	MatchedOn     MatchConditions         `json:"matched_on"`
	MatchedOnArgs *StellarMatchArguments  `json:"matched_on_args,omitempty"`
}

// MonitorMatch is the closed tagged union over chain-specific matches.
type MonitorMatch interface {
	ChainType() BlockChainType
	MonitorName() string
	isMonitorMatch()
}

func (m *EVMMonitorMatch) ChainType() BlockChainType { return EVM }
func (m *EVMMonitorMatch) MonitorName() string       { return m.Monitor.Name }
func (m *EVMMonitorMatch) isMonitorMatch()           {}

func (m *StellarMonitorMatch) ChainType() BlockChainType { return Stellar }
func (m *StellarMonitorMatch) MonitorName() string       { return m.Monitor.Name }
func (m *StellarMonitorMatch) isMonitorMatch()           {}

// ProcessedBlock is the unit pushed onto the trigger channel by a block
// worker: every match found while filtering a single block.
type ProcessedBlock struct {
	BlockNumber      uint64         `json:"block_number"`
	NetworkSlug      string         `json:"network_slug"`
	ProcessingResults []MonitorMatch `json:"processing_results"`
}
