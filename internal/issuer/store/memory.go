package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"zoopr/internal/issuer/models"
	"zoopr/internal/sentinel"
)

// InMemory holds all issuance state of the voucher-gated issuer: the token
// list, the append-only name registry, the one-shot free-mint flags, the
// stage record, and the mutable total cap. Everything moves under one lock so
// a mint commits as a single state transition.
type InMemory struct {
	mu          sync.RWMutex
	stage       models.StageDetail
	cap         uint64
	stageMinted uint64
	tokens      []*models.Token
	mintedNames map[string]struct{}
	freeClaims  map[common.Address]struct{}
}

// NewInMemory creates the store with the deployment-time stage and total cap.
func NewInMemory(initial models.StageDetail, totalCap uint64) *InMemory {
	return &InMemory{
		stage:       initial.Clone(),
		cap:         totalCap,
		mintedNames: make(map[string]struct{}),
		freeClaims:  make(map[common.Address]struct{}),
	}
}

// StageDetail returns the active stage configuration.
func (s *InMemory) StageDetail(_ context.Context) (models.StageDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage.Clone(), nil
}

// Cap returns the mutable total supply cap.
func (s *InMemory) Cap(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cap, nil
}

// SetCap replaces the total supply cap.
func (s *InMemory) SetCap(_ context.Context, cap uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cap = cap
	return nil
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

// NameMinted reports whether the name was consumed by any prior mint.
// Matching is exact and case-sensitive.
func (s *InMemory) NameMinted(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.mintedNames[name]
	return ok, nil
}

// FreeMintUsed reports whether the account already consumed its free mint.
func (s *InMemory) FreeMintUsed(_ context.Context, account common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.freeClaims[account]
	return ok, nil
}

// Mint atomically appends a token, marks the name as minted, bumps both
// counters, and (for the free path) records the account's free-mint claim.
// All eligibility checks belong to the caller; the id is the count of tokens
// minted so far, keeping ids sequential and never reused.
func (s *InMemory) Mint(_ context.Context, owner common.Address, username, uri string, claimFreeFor *common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mintedNames[username]; ok {
		return 0, fmt.Errorf("username %q: %w", username, sentinel.ErrAlreadyUsed)
	}

	id := uint64(len(s.tokens))
	s.tokens = append(s.tokens, &models.Token{
		ID:       id,
		Owner:    owner,
		Username: username,
		URI:      uri,
		MintedAt: time.Now(),
	})
	s.mintedNames[username] = struct{}{}
	s.stageMinted++
	if claimFreeFor != nil {
		s.freeClaims[*claimFreeFor] = struct{}{}
	}
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
