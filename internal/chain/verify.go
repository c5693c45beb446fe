package chain

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	ErrInvalidSignature = errors.New("invalid signature format")
	ErrInvalidAddress   = errors.New("invalid wallet address")
)

// ValidateSignature checks that sig looks like a base58 encoded ed25519
// transaction signature. It says nothing about whether it landed on chain.
func ValidateSignature(sig string) error {
	if len(sig) < MinSignatureLength || len(sig) > MaxSignatureLength {
		return fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	raw, err := base58.Decode(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(raw) != len(solana.Signature{}) {
		return fmt.Errorf("%w: decoded to %d bytes", ErrInvalidSignature, len(raw))
	}
	return nil
}

// ValidateAddress checks that addr is a base58 encoded public key.
func ValidateAddress(addr string) error {
	if _, err := solana.PublicKeyFromBase58(addr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return nil
}
