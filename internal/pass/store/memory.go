package store

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"zoopr/internal/pass/models"
	"zoopr/internal/sentinel"
)

// InMemory holds pass issuance state in memory. The stage record, counters,
// and token list move together under one lock so a mint or stage replace is
// observed as a single state transition.
type InMemory struct {
	mu          sync.RWMutex
	stage       models.StageDetail
	stageMinted uint64
	tokens      []*models.Token
	ownerCounts map[common.Address]int
}

// NewInMemory creates the store with the deployment-time stage configuration.
func NewInMemory(initial models.StageDetail) *InMemory {
	return &InMemory{
		stage:       initial.Clone(),
		ownerCounts: make(map[common.Address]int),
	}
}

// StageDetail returns the active stage configuration.
func (s *InMemory) StageDetail(_ context.Context) (models.StageDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage.Clone(), nil
}

// Counters returns total minted and stage minted counts.
func (s *InMemory) Counters(_ context.Context) (total, stageMinted uint64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.tokens)), s.stageMinted, nil
}

// ReplaceStage installs a new stage configuration and zeroes the stage
// counter in the same step.
func (s *InMemory) ReplaceStage(_ context.Context, detail models.StageDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = detail.Clone()
	s.stageMinted = 0
	return nil
}

// CountByOwner returns how many passes the account holds.
func (s *InMemory) CountByOwner(_ context.Context, owner common.Address) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerCounts[owner], nil
}

// Mint appends a new token for the owner and bumps both counters atomically.
// The caller is responsible for all cap and fee checks; the id is the number
// of tokens minted so far, so ids stay sequential and are never reused.
func (s *InMemory) Mint(_ context.Context, owner common.Address, uri string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uint64(len(s.tokens))
	s.tokens = append(s.tokens, &models.Token{
		ID:       id,
		Owner:    owner,
		URI:      uri,
		MintedAt: time.Now(),
	})
	s.ownerCounts[owner]++
	s.stageMinted++
	return id, nil
}

// FindToken retrieves a token by id.
func (s *InMemory) FindToken(_ context.Context, id uint64) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= uint64(len(s.tokens)) {
		return nil, sentinel.ErrNotFound
	}
	tok := *s.tokens[id]
	return &tok, nil
}
