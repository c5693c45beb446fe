package repository

import (
	"context"
	"errors"
	"strings"

	"gold_mining/internal/domain"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidAddress = errors.New("invalid address")
)

// PlayerStore is the persistence contract for player state. GetPlayer
// creates the player on first sight; PutPlayer replaces the whole record.
type PlayerStore interface {
	GetPlayer(ctx context.Context, address string) (*domain.Player, error)
	PutPlayer(ctx context.Context, address string, p *domain.Player) error
	ListPendingPayoutAddresses(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

func checkAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return ErrInvalidAddress
	}
	return nil
}
