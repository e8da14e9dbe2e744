// Package events carries the issuance event stream: every successful mint and
// admin reconfiguration is emitted exactly once, after state is committed.
package events

import (
	"context"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type Kind string

const (
	KindTokenMinted      Kind = "token_minted"
	KindStageUpdated     Kind = "stage_updated"
	KindCapUpdated       Kind = "cap_updated"
	KindValidatorGranted Kind = "validator_granted"
	KindValidatorRevoked Kind = "validator_revoked"
)

// Event describes one issuance side effect. Collection distinguishes the two
// issuers ("pass" or "unt"); only the fields relevant to Kind are set.
type Event struct {
	Kind       Kind
	Collection string

	TokenID uint64
	Owner   common.Address

	Stage    string
	StageCap uint64
	Fee      *big.Int

	Cap       uint64
	Validator common.Address
}

// Publisher receives issuance events. Implementations must not block mint calls.
type Publisher interface {
	Emit(ctx context.Context, e Event) error
}

// SlogPublisher writes events to the structured log.
type SlogPublisher struct {
	logger *slog.Logger
}

func NewSlogPublisher(logger *slog.Logger) *SlogPublisher {
	return &SlogPublisher{logger: logger}
}

func (p *SlogPublisher) Emit(ctx context.Context, e Event) error {
	args := []any{"collection", e.Collection, "log_type", "event"}
	switch e.Kind {
	case KindTokenMinted:
		args = append(args, "token_id", e.TokenID, "owner", e.Owner.Hex())
	case KindStageUpdated:
		args = append(args, "stage", e.Stage, "stage_cap", e.StageCap, "fee", e.Fee.String())
	case KindCapUpdated:
		args = append(args, "cap", e.Cap)
	case KindValidatorGranted, KindValidatorRevoked:
		args = append(args, "validator", e.Validator.Hex())
	}
	p.logger.InfoContext(ctx, string(e.Kind), args...)
	return nil
}

// Capture records events in memory for tests.
type Capture struct {
	mu     sync.Mutex
	events []Event
}

func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) Emit(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

// Events returns a copy of everything captured so far.
func (c *Capture) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
