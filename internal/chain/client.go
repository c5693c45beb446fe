package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrTransactionFailed means the signature landed on chain with an error.
var ErrTransactionFailed = errors.New("transaction failed on chain")

// RPC is the subset of the Solana JSON-RPC client used here.
type RPC interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// StatusChecker reports how far a payment signature has progressed.
type StatusChecker interface {
	GetConfirmationStatus(ctx context.Context, signature string) (Status, error)
}

// TxBuilder serializes unsigned transfers for the player's wallet to sign.
type TxBuilder interface {
	BuildTransfer(ctx context.Context, from, to string, lamports uint64) (string, error)
}

// Dispatcher sends lamports to a wallet and returns the signature.
type Dispatcher interface {
	Dispatch(ctx context.Context, to string, lamports uint64) (string, error)
}

// Client talks to a Solana cluster
type Client struct {
	rpc        RPC
	clusterURL string
	timeout    time.Duration
}

// NewClient creates a client for the cluster at clusterURL. Every call is
// bounded by timeout.
func NewClient(clusterURL string, timeout time.Duration) *Client {
	return NewClientWithRPC(rpc.New(clusterURL), clusterURL, timeout)
}

func NewClientWithRPC(r RPC, clusterURL string, timeout time.Duration) *Client {
	return &Client{rpc: r, clusterURL: clusterURL, timeout: timeout}
}

func (c *Client) ClusterURL() string {
	return c.clusterURL
}

// GetConfirmationStatus looks up a payment signature. An error means the
// cluster could not be asked; the returned status is then unverified.
func (c *Client) GetConfirmationStatus(ctx context.Context, signature string) (Status, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return StatusUnknown, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return StatusUnverified, fmt.Errorf("get signature status: %w", err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return StatusUnknown, nil
	}

	st := res.Value[0]
	if st.Err != nil {
		return StatusUnknown, fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err)
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return StatusConfirmed, nil
	case rpc.ConfirmationStatusProcessed:
		return StatusProcessed, nil
	default:
		return StatusUnknown, nil
	}
}

// BuildTransfer returns an unsigned, base64 encoded SystemProgram transfer
// for the wallet at from to sign and submit.
func (c *Client) BuildTransfer(ctx context.Context, from, to string, lamports uint64) (string, error) {
	fromPK, err := solana.PublicKeyFromBase58(from)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	toPK, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	tx, err := c.newTransfer(ctx, fromPK, toPK, lamports)
	if err != nil {
		return "", err
	}
	// empty signature slots, the wallet fills in the payer's
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (c *Client) newTransfer(ctx context.Context, from, to solana.PublicKey, lamports uint64) (*solana.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}
	if bh == nil || bh.Value == nil {
		return nil, errors.New("get latest blockhash: empty response")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(lamports, from, to).Build()},
		bh.Value.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	return tx, nil
}
