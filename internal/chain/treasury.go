package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var ErrNoTreasury = errors.New("treasury is not configured")

// Treasury pays players out of the game wallet.
type Treasury struct {
	client *Client
	key    solana.PrivateKey
}

// NewTreasury parses secret either as a base58 private key or as the JSON
// byte array written by solana-keygen.
func NewTreasury(client *Client, secret string) (*Treasury, error) {
	key, err := ParsePrivateKey(secret)
	if err != nil {
		return nil, err
	}
	return &Treasury{client: client, key: key}, nil
}

func ParsePrivateKey(secret string) (solana.PrivateKey, error) {
	secret = strings.TrimSpace(secret)
	if strings.HasPrefix(secret, "[") {
		var raw []byte
		if err := json.Unmarshal([]byte(secret), &raw); err != nil {
			return nil, fmt.Errorf("parse treasury key: %w", err)
		}
		if len(raw) != 64 {
			return nil, fmt.Errorf("parse treasury key: want 64 bytes, got %d", len(raw))
		}
		return solana.PrivateKey(raw), nil
	}
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("parse treasury key: %w", err)
	}
	return key, nil
}

func (t *Treasury) PublicKey() string {
	return t.key.PublicKey().String()
}

// Dispatch sends lamports from the treasury to the wallet at to and returns
// the transaction signature.
func (t *Treasury) Dispatch(ctx context.Context, to string, lamports uint64) (string, error) {
	toPK, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if lamports == 0 {
		return "", errors.New("payout amount rounds to zero lamports")
	}

	from := t.key.PublicKey()
	tx, err := t.client.newTransfer(ctx, from, toPK, lamports)
	if err != nil {
		return "", err
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(from) {
			return &t.key
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign payout: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.client.timeout)
	defer cancel()
	sig, err := t.client.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("send payout: %w", err)
	}
	return sig.String(), nil
}
