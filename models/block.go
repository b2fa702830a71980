package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// BlockType is a closed tagged union over the chain-specific block shapes
// the monitor can process. Implementations are deliberately NOT unified
// into a common struct (see DESIGN NOTES in SPEC_FULL.md): each chain keeps
// its own native representation and only exposes a logical height.
type BlockType interface {
	// Number returns the logical block/ledger height.
	Number() uint64
	// ChainType reports which chain kind produced this block.
	ChainType() BlockChainType
	isBlockType()
}

// EVMBlock wraps a go-ethereum block header+body as fetched via
// eth_getBlockByNumber(hex, true).
type EVMBlock struct {
	NumberValue  uint64
	Hash         string
	ParentHash   string
	Timestamp    uint64
	Transactions []*types.Transaction
	// FromAddrs/ToAddrs index transaction senders/recipients by hash for
	// fast lookup without re-deriving signatures (go-ethereum's Transaction
	// does not carry `from` without signer recovery, and the RPC response
	// already supplies it).
	FromAddrs map[string]string
	ToAddrs   map[string]string
}

func (b *EVMBlock) Number() uint64              { return b.NumberValue }
func (b *EVMBlock) ChainType() BlockChainType    { return EVM }
func (b *EVMBlock) isBlockType()                 {}

// StellarLedger wraps a single ledger's sequence plus the transactions and
// contract events fetched for it via the Soroban RPC methods.
type StellarLedger struct {
	Sequence     uint64
	CloseTime    uint64
	Transactions []StellarTransaction
	Events       []StellarEvent
}

func (l *StellarLedger) Number() uint64           { return l.Sequence }
func (l *StellarLedger) ChainType() BlockChainType { return Stellar }
func (l *StellarLedger) isBlockType()              {}

// StellarTransaction is a decoded Soroban transaction envelope.
type StellarTransaction struct {
	Hash        string
	Status      string
	LedgerSeq   uint64
	Invocations []StellarInvocation
}

// StellarInvocation is one decoded contract invocation found in a
// transaction's envelope XDR.
type StellarInvocation struct {
	ContractAddress string
	FunctionName    string
	Args            []StellarScVal
}

// StellarScVal is a decoded primitive Soroban contract value, tagged by its
// ScVal kind (Address, I128, U128, I64, U64, String, Bool, Bytes, Symbol,
// Vec, Map).
type StellarScVal struct {
	Kind  string
	Value interface{}
}

// StellarEvent is a decoded contract event attached to a transaction.
type StellarEvent struct {
	TxHash          string
	ContractAddress string
	Topics          []StellarScVal
	Data            StellarScVal
}

// MidnightBlock is an explicit not-yet-supported stub: it carries no
// transaction body because the upstream Midnight RPC shape is not decodable yet (see
// DESIGN NOTES open question 2 / original_source's transaction.rs).
type MidnightBlock struct {
	NumberValue uint64
	Hash        string
}

func (b *MidnightBlock) Number() uint64           { return b.NumberValue }
func (b *MidnightBlock) ChainType() BlockChainType { return Midnight }
func (b *MidnightBlock) isBlockType()              {}

// SolanaBlock mirrors the Midnight stub: Solana has no decoder yet.
type SolanaBlock struct {
	Slot uint64
	Hash string
}

func (b *SolanaBlock) Number() uint64           { return b.Slot }
func (b *SolanaBlock) ChainType() BlockChainType { return Solana }
func (b *SolanaBlock) isBlockType()              {}

// WeiToString renders a *big.Int the way the filter engine stores numeric
// parameter values (decimal string, no scientific notation).
func WeiToString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
