package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gold_mining/internal/domain"

	"github.com/jonboulle/clockwork"
)

// FileStore keeps every player in one JSON document keyed by address,
// the same layout as the legacy users.json. Each write replaces the file
// atomically.
type FileStore struct {
	path  string
	kinds []domain.EquipmentKind
	clock clockwork.Clock

	mu      sync.RWMutex
	players map[string]*domain.Player
}

// OpenFileStore loads path, or starts empty if it does not exist yet.
func OpenFileStore(path string, kinds []domain.EquipmentKind, clock clockwork.Clock) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		kinds:   kinds,
		clock:   clock,
		players: make(map[string]*domain.Player),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.players); err != nil {
		return nil, fmt.Errorf("decode users file: %w", err)
	}
	for addr, p := range s.players {
		if p == nil {
			delete(s.players, addr)
			continue
		}
		p.Address = addr
		p.Inventory = p.Inventory.Normalize(kinds)
	}
	return s, nil
}

func (s *FileStore) GetPlayer(ctx context.Context, address string) (*domain.Player, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}

	s.mu.RLock()
	p, ok := s.players[address]
	s.mu.RUnlock()
	if ok {
		return p.Clone(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[address]; ok {
		return p.Clone(), nil
	}
	p = domain.NewPlayer(address, s.clock.Now().Unix())
	p.Inventory = p.Inventory.Normalize(s.kinds)
	s.players[address] = p
	if err := s.flushLocked(); err != nil {
		delete(s.players, address)
		return nil, err
	}
	return p.Clone(), nil
}

func (s *FileStore) PutPlayer(ctx context.Context, address string, p *domain.Player) error {
	if err := checkAddress(address); err != nil {
		return err
	}

	next := p.Clone()
	next.Address = address
	next.Inventory = next.Inventory.Normalize(s.kinds)

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.players[address]
	s.players[address] = next
	if err := s.flushLocked(); err != nil {
		if had {
			s.players[address] = prev
		} else {
			delete(s.players, address)
		}
		return err
	}
	return nil
}

func (s *FileStore) ListPendingPayoutAddresses(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for addr, p := range s.players {
		if len(p.PendingPayouts) > 0 {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Players returns a copy of every stored player, ordered by address.
func (s *FileStore) Players(ctx context.Context) ([]*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	return nil
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.players, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close users file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}
