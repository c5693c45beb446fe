package game

import (
	"errors"
	"fmt"

	"gold_mining/internal/domain"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrInsufficientFunds     = errors.New("insufficient gold")
	ErrAlreadyOwns           = errors.New("already owned")
	ErrInventoryDesync       = errors.New("inventory mismatch")
	ErrUnverifiableSignature = errors.New("signature could not be verified")
	ErrPersistence           = errors.New("persistence failure")
	ErrPayoutDispatch        = errors.New("payout dispatch failed")
)

// Validation reasons reported to clients.
const (
	ReasonMissingAddress = "missing_address"
	ReasonBadAddress     = "bad_address"
	ReasonBelowMinimum   = "below_minimum"
	ReasonGoldClaim      = "gold_claim_implausible"
	ReasonUnknownKind    = "unknown_kind"
	ReasonBadSignature   = "bad_signature"
	ReasonBadAmount      = "bad_amount"
	ReasonPriceMismatch  = "price_mismatch"
	ReasonLandRequired   = "land_required"
	ReasonNotConfirmed   = "not_confirmed"
)

// Error carries the kind plus whatever authoritative state the client
// needs to resync.
type Error struct {
	Kind      error
	Reason    string
	Message   string
	Balance   *float64
	Price     *float64
	Inventory domain.Inventory
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func Validation(reason, msg string) *Error {
	return &Error{Kind: ErrValidation, Reason: reason, Message: msg}
}

func InsufficientFunds(balance float64) *Error {
	return &Error{Kind: ErrInsufficientFunds, Message: "not enough gold", Balance: &balance}
}

func AlreadyOwns(msg string) *Error {
	return &Error{Kind: ErrAlreadyOwns, Message: msg}
}

func InventoryDesync(server domain.Inventory) *Error {
	return &Error{Kind: ErrInventoryDesync, Message: "inventory mismatch", Inventory: server}
}

func Unverifiable(err error) *Error {
	return &Error{Kind: ErrUnverifiableSignature, Message: "signature could not be verified", Err: err}
}

func Persistence(err error) *Error {
	return &Error{Kind: ErrPersistence, Message: "storage failure", Err: err}
}

func PayoutDispatch(err error) *Error {
	return &Error{Kind: ErrPayoutDispatch, Message: "payout dispatch failed", Err: err}
}
