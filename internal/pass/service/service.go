// Package service implements the pass issuer: a permissionless, fee-gated,
// capped mint with a per-account purchase limit and admin-tiered stages.
package service

import (
	"context"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	passmetrics "zoopr/internal/pass/metrics"
	"zoopr/internal/pass/models"
	"zoopr/internal/roles"
	dErrors "zoopr/pkg/domain-errors"
	"zoopr/pkg/platform/events"
)

// Collection constants fixed at deployment.
const (
	Name              = "ZooprPass"
	Symbol            = "ZPASS"
	TotalCap          = uint64(1000)
	MaxMintPerAccount = 2
)

var tracer = otel.Tracer("zoopr/internal/pass")

// Store persists pass issuance state. Mint and ReplaceStage must each apply
// as one atomic state transition.
type Store interface {
	StageDetail(ctx context.Context) (models.StageDetail, error)
	Counters(ctx context.Context) (total, stageMinted uint64, err error)
	ReplaceStage(ctx context.Context, detail models.StageDetail) error
	CountByOwner(ctx context.Context, owner common.Address) (int, error)
	Mint(ctx context.Context, owner common.Address, uri string) (uint64, error)
	FindToken(ctx context.Context, id uint64) (*models.Token, error)
}

// Ledger settles mint fees. Transfers run strictly after state mutations.
type Ledger interface {
	Balance(account common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
}

// Service orchestrates pass minting and stage administration. A single mutex
// serializes mutating entry points: each call completes against shared state
// before the next begins, mirroring the atomic-call execution model.
type Service struct {
	mu sync.Mutex

	store    Store
	ledger   Ledger
	roles    *roles.Set
	tokenURI string

	logger    *slog.Logger
	publisher events.Publisher
	metrics   *passmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *passmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, ledger Ledger, roleSet *roles.Set, tokenURI string, opts ...Option) *Service {
	s := &Service{store: store, ledger: ledger, roles: roleSet, tokenURI: tokenURI}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint issues one pass to the caller against the attached payment. The exact
// stage fee is forwarded to the admin and the excess stays with the caller.
func (s *Service) Mint(ctx context.Context, caller common.Address, payment *big.Int) (*models.Token, error) {
	ctx, span := tracer.Start(ctx, "pass.Mint", trace.WithAttributes(
		attribute.String("caller", caller.Hex()),
	))
	defer span.End()

	if payment == nil || payment.Sign() < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "payment must be a non-negative amount")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stage, err := s.store.StageDetail(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage detail")
	}

	// Rejection order is part of the contract: fee, stage cap, per-account
	// limit, total cap.
	if payment.Cmp(stage.Fee) < 0 {
		return nil, s.reject(dErrors.CodeInsufficientFee, "insufficient mint fees")
	}

	total, stageMinted, err := s.store.Counters(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load counters")
	}
	if stageMinted >= stage.StageCap {
		return nil, s.reject(dErrors.CodeStageCapExceeded, "stage cap exceeded")
	}

	held, err := s.store.CountByOwner(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count owner passes")
	}
	if held >= MaxMintPerAccount {
		return nil, s.reject(dErrors.CodeMaxPerAccountReached, "max mint per account exceeded")
	}

	if total >= TotalCap {
		return nil, s.reject(dErrors.CodeTotalCapExceeded, "total cap exceeded")
	}

	if s.ledger.Balance(caller).Cmp(payment) < 0 {
		return nil, s.reject(dErrors.CodeInsufficientFee, "insufficient funds to cover attached payment")
	}

	id, err := s.store.Mint(ctx, caller, s.tokenURI)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint pass")
	}

	// Effects are committed; settle value last so a re-entrant call observes
	// fully updated state. Only the exact fee ever leaves the caller, so the
	// excess payment is refunded by construction.
	if err := s.ledger.Transfer(caller, s.roles.Admin(), stage.Fee); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to settle mint fee")
	}

	span.SetAttributes(attribute.Int64("token.id", int64(id)))

	s.logEvent(ctx, "pass minted", "token_id", id, "owner", caller.Hex(), "fee", stage.Fee.String())
	if s.metrics != nil {
		s.metrics.IncrementMints()
	}
	s.emit(ctx, events.Event{
		Kind:       events.KindTokenMinted,
		Collection: "pass",
		TokenID:    id,
		Owner:      caller,
	})

	return &models.Token{ID: id, Owner: caller, URI: s.tokenURI}, nil
}

// UpdateStageDetail installs a new stage configuration and resets the stage
// counter in one transition. Admin only.
func (s *Service) UpdateStageDetail(ctx context.Context, caller common.Address, label string, cap uint64, fee *big.Int) error {
	if !s.roles.IsAdmin(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the admin")
	}
	if label == "" {
		return dErrors.New(dErrors.CodeValidation, "stage label is required")
	}
	if fee == nil || fee.Sign() < 0 {
		return dErrors.New(dErrors.CodeValidation, "stage fee must be a non-negative amount")
	}
	if cap > TotalCap {
		return dErrors.New(dErrors.CodeCapExceedsTotal, "stage cap exceeds total cap")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	detail := models.StageDetail{Label: label, StageCap: cap, Fee: fee}
	if err := s.store.ReplaceStage(ctx, detail); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace stage")
	}

	s.logEvent(ctx, "pass stage updated", "stage", label, "stage_cap", cap, "fee", fee.String())
	if s.metrics != nil {
		s.metrics.IncrementStageUpdates()
	}
	s.emit(ctx, events.Event{
		Kind:       events.KindStageUpdated,
		Collection: "pass",
		Stage:      label,
		StageCap:   cap,
		Fee:        new(big.Int).Set(fee),
	})
	return nil
}

// Stage returns the active stage configuration.
func (s *Service) Stage(ctx context.Context) (models.StageDetail, error) {
	detail, err := s.store.StageDetail(ctx)
	if err != nil {
		return models.StageDetail{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage detail")
	}
	return detail, nil
}

// Counters returns total and stage minted counts.
func (s *Service) Counters(ctx context.Context) (total, stageMinted uint64, err error) {
	total, stageMinted, err = s.store.Counters(ctx)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load counters")
	}
	return total, stageMinted, nil
}

// BalanceOf returns how many passes an account holds. This is the read-only
// query the voucher-gated issuer consumes for its free-mint eligibility check.
func (s *Service) BalanceOf(ctx context.Context, account common.Address) (int, error) {
	count, err := s.store.CountByOwner(ctx, account)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count owner passes")
	}
	return count, nil
}

// Token returns a minted token by id.
func (s *Service) Token(ctx context.Context, id uint64) (*models.Token, error) {
	tok, err := s.store.FindToken(ctx, id)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "token not found")
	}
	return tok, nil
}

func (s *Service) reject(code dErrors.Code, msg string) error {
	if s.metrics != nil {
		s.metrics.IncrementMintRejected()
	}
	return dErrors.New(code, msg)
}

func (s *Service) logEvent(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg, append(args, "log_type", "audit")...)
}

func (s *Service) emit(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, e); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit event", "error", err, "kind", e.Kind)
	}
}
