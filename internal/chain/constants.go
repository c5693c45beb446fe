package chain

import (
	"math"

	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// LamportsPerSOL is the number of lamports in one SOL
	LamportsPerSOL = 1_000_000_000

	// Wallets produce base58 signatures of 87 or 88 characters; anything
	// well outside that range is not a transaction signature.
	MinSignatureLength = 80
	MaxSignatureLength = 90

	DevnetURL  = rpc.DevNet_RPC
	MainnetURL = rpc.MainNetBeta_RPC
)

// Status is the advisory confirmation state of a payment signature.
type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusProcessed  Status = "processed"
	StatusUnverified Status = "unverified"
	StatusUnknown    Status = "unknown"
)

// SOLToLamports converts SOL to lamports, rounding to the nearest lamport
func SOLToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(math.Round(sol * LamportsPerSOL))
}

// LamportsToSOL converts lamports to SOL
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}
