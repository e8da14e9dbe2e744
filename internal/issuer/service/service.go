// Package service implements the voucher-gated issuer: every mint presents a
// validator-signed voucher, names are issued at most once, and supply is
// bounded by a per-stage cap and a mutable total cap.
package service

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	issuermetrics "zoopr/internal/issuer/metrics"
	"zoopr/internal/issuer/models"
	"zoopr/internal/roles"
	"zoopr/internal/voucher"
	dErrors "zoopr/pkg/domain-errors"
	"zoopr/pkg/platform/events"
)

// Name of the collection, also the typed-data domain name.
const Name = "UniqueNameToken"

var tracer = otel.Tracer("zoopr/internal/issuer")

// Store persists issuer state. Mint and ReplaceStage must each apply as one
// atomic state transition.
type Store interface {
	StageDetail(ctx context.Context) (models.StageDetail, error)
	Cap(ctx context.Context) (uint64, error)
	SetCap(ctx context.Context, cap uint64) error
	Counters(ctx context.Context) (total, stageMinted uint64, err error)
	ReplaceStage(ctx context.Context, detail models.StageDetail) error
	NameMinted(ctx context.Context, name string) (bool, error)
	FreeMintUsed(ctx context.Context, account common.Address) (bool, error)
	Mint(ctx context.Context, owner common.Address, username, uri string, claimFreeFor *common.Address) (uint64, error)
	FindToken(ctx context.Context, id uint64) (*models.Token, error)
}

// PassBalance is the single outbound query to the pass issuer: how many pass
// records an account holds.
type PassBalance interface {
	BalanceOf(ctx context.Context, account common.Address) (int, error)
}

// Ledger settles mint fees. Transfers run strictly after state mutations.
type Ledger interface {
	Balance(account common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
}

// Service is the authorization-and-bookkeeping core. A single mutex
// serializes mutating entry points so each call observes and commits state
// atomically, mirroring the serialized execution model the invariants assume.
type Service struct {
	mu sync.Mutex

	store  Store
	passes PassBalance
	ledger Ledger
	roles  *roles.Set
	domain *voucher.Domain

	logger    *slog.Logger
	publisher events.Publisher
	metrics   *issuermetrics.Metrics
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

func WithMetrics(m *issuermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, passes PassBalance, ledger Ledger, roleSet *roles.Set, domain *voucher.Domain, opts ...Option) *Service {
	s := &Service{store: store, passes: passes, ledger: ledger, roles: roleSet, domain: domain}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint issues the name in the voucher to voucher.Account against the attached
// payment. The charged amount is the voucher fee when nonzero, otherwise the
// configured stage fee: a zero-fee voucher on this path still costs the
// standard fee; only FreeMint is free.
func (s *Service) Mint(ctx context.Context, caller common.Address, v *voucher.Voucher, payment *big.Int) (*models.Token, error) {
	ctx, span := tracer.Start(ctx, "issuer.Mint", trace.WithAttributes(
		attribute.String("voucher.account", v.Account.Hex()),
	))
	defer span.End()
	start := time.Now()

	if payment == nil || payment.Sign() < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "payment must be a non-negative amount")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	voucherFee, err := s.validateVoucher(ctx, v)
	if err != nil {
		return nil, err
	}

	stage, err := s.store.StageDetail(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage detail")
	}

	// Per-voucher pricing: a nonzero voucher fee overrides the stage fee.
	charged := stage.Fee
	if voucherFee.Sign() > 0 {
		charged = voucherFee
	}
	if payment.Cmp(charged) < 0 {
		return nil, s.reject(dErrors.CodeInsufficientFee, "insufficient minting fees")
	}

	if err := s.checkCaps(ctx); err != nil {
		return nil, err
	}

	if s.ledger.Balance(caller).Cmp(charged) < 0 {
		return nil, s.reject(dErrors.CodeInsufficientFee, "insufficient funds to cover minting fees")
	}

	id, err := s.store.Mint(ctx, v.Account, v.Username, v.TokenURI, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint token")
	}

	// Effects are committed; settle value last so a re-entrant call observes
	// fully updated state. Only the charged amount leaves the caller, so the
	// excess payment is refunded by construction.
	if err := s.ledger.Transfer(caller, s.roles.Admin(), charged); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to settle mint fee")
	}

	span.SetAttributes(attribute.Int64("token.id", int64(id)))
	s.logEvent(ctx, "name token minted",
		"token_id", id,
		"owner", v.Account.Hex(),
		"username", v.Username,
		"charged", charged.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementMints()
		s.metrics.ObserveMint(start)
	}
	s.emit(ctx, events.Event{
		Kind:       events.KindTokenMinted,
		Collection: "unt",
		TokenID:    id,
		Owner:      v.Account,
	})

	return &models.Token{ID: id, Owner: v.Account, Username: v.Username, URI: v.TokenURI}, nil
}

// FreeMint issues the name in the voucher to voucher.Account without charging,
// gated on pass ownership. Each account's free mint can be consumed only once;
// the claim flag, not the voucher signature, is authoritative for replay.
func (s *Service) FreeMint(ctx context.Context, caller common.Address, v *voucher.Voucher) (*models.Token, error) {
	ctx, span := tracer.Start(ctx, "issuer.FreeMint", trace.WithAttributes(
		attribute.String("voucher.account", v.Account.Hex()),
	))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.validateVoucher(ctx, v); err != nil {
		return nil, err
	}

	held, err := s.passes.BalanceOf(ctx, v.Account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query pass balance")
	}
	if held < 1 {
		return nil, s.reject(dErrors.CodeNoGenesisPass, "account does not have a genesis pass")
	}

	used, err := s.store.FreeMintUsed(ctx, v.Account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load free mint claim")
	}
	if used {
		return nil, s.reject(dErrors.CodeFreeMintUsed, "genesis pass free mint has already been used")
	}

	if err := s.checkCaps(ctx); err != nil {
		return nil, err
	}

	id, err := s.store.Mint(ctx, v.Account, v.Username, v.TokenURI, &v.Account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint token")
	}

	span.SetAttributes(attribute.Int64("token.id", int64(id)))
	s.logEvent(ctx, "name token minted via genesis pass",
		"token_id", id,
		"owner", v.Account.Hex(),
		"username", v.Username,
	)
	if s.metrics != nil {
		s.metrics.IncrementFreeMints()
		s.metrics.ObserveMint(start)
	}
	s.emit(ctx, events.Event{
		Kind:       events.KindTokenMinted,
		Collection: "unt",
		TokenID:    id,
		Owner:      v.Account,
	})

	return &models.Token{ID: id, Owner: v.Account, Username: v.Username, URI: v.TokenURI}, nil
}

// validateVoucher runs the shared validation procedure in its fixed order:
// signer recovery against the validator set, deadline, then name uniqueness.
// Returns the parsed voucher fee. Callers must hold s.mu.
func (s *Service) validateVoucher(ctx context.Context, v *voucher.Voucher) (*big.Int, error) {
	fee, err := v.FeeAmount()
	if err != nil {
		return nil, s.reject(dErrors.CodeInvalidVoucher, "invalid mint data received")
	}
	deadline, err := v.DeadlineUnix()
	if err != nil {
		return nil, s.reject(dErrors.CodeInvalidVoucher, "invalid mint data received")
	}

	signer, err := voucher.RecoverSigner(s.domain, v)
	if err != nil || !s.roles.IsValidator(signer) {
		return nil, s.reject(dErrors.CodeInvalidVoucher, "invalid mint data received")
	}

	if time.Now().Unix() > deadline {
		return nil, s.reject(dErrors.CodeSignatureExpired, "signature expired")
	}

	minted, err := s.store.NameMinted(ctx, v.Username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check name registry")
	}
	if minted {
		return nil, s.reject(dErrors.CodeAlreadyMinted, "username has already been minted")
	}

	return fee, nil
}

// checkCaps enforces the stage and total supply bounds. Callers must hold s.mu.
func (s *Service) checkCaps(ctx context.Context) error {
	stage, err := s.store.StageDetail(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stage detail")
	}
	total, stageMinted, err := s.store.Counters(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load counters")
	}
	cap, err := s.store.Cap(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cap")
	}

	if stageMinted >= stage.StageCap {
		return s.reject(dErrors.CodeStageCapExceeded, "stage cap exceeded")
	}
	if total >= cap {
		return s.reject(dErrors.CodeTotalCapExceeded, "maximum cap exceeded")
	}
	return nil
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

	s.mu.Lock()
	defer s.mu.Unlock()

	detail := models.StageDetail{Label: label, StageCap: cap, Fee: fee}
	if err := s.store.ReplaceStage(ctx, detail); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace stage")
	}

	s.logEvent(ctx, "stage updated", "stage", label, "stage_cap", cap, "fee", fee.String())
	if s.metrics != nil {
		s.metrics.IncrementStageUpdates()
	}
	s.emit(ctx, events.Event{
		Kind:       events.KindStageUpdated,
		Collection: "unt",
		Stage:      label,
		StageCap:   cap,
		Fee:        new(big.Int).Set(fee),
	})
	return nil
}

// UpdateCap replaces the total supply cap. Admin only. The cap has no upper
// bound: for this issuer the cap is itself the total cap, mutable by design.
func (s *Service) UpdateCap(ctx context.Context, caller common.Address, cap uint64) error {
	if !s.roles.IsAdmin(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the admin")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetCap(ctx, cap); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set cap")
	}

	s.logEvent(ctx, "cap updated", "cap", cap)
	s.emit(ctx, events.Event{Kind: events.KindCapUpdated, Collection: "unt", Cap: cap})
	return nil
}

// GrantValidator adds an account to the validator role. Admin only.
func (s *Service) GrantValidator(ctx context.Context, caller, validator common.Address) error {
	if err := s.roles.Grant(caller, validator); err != nil {
		return err
	}
	s.logEvent(ctx, "validator granted", "validator", validator.Hex())
	s.emit(ctx, events.Event{Kind: events.KindValidatorGranted, Collection: "unt", Validator: validator})
	return nil
}

// RevokeValidator removes an account from the validator role. Admin only.
func (s *Service) RevokeValidator(ctx context.Context, caller, validator common.Address) error {
	if err := s.roles.Revoke(caller, validator); err != nil {
		return err
	}
	s.logEvent(ctx, "validator revoked", "validator", validator.Hex())
	s.emit(ctx, events.Event{Kind: events.KindValidatorRevoked, Collection: "unt", Validator: validator})
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

// Cap returns the mutable total supply cap.
func (s *Service) Cap(ctx context.Context) (uint64, error) {
	cap, err := s.store.Cap(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load cap")
	}
	return cap, nil
}

// Counters returns total and stage minted counts.
func (s *Service) Counters(ctx context.Context) (total, stageMinted uint64, err error) {
	total, stageMinted, err = s.store.Counters(ctx)
	if err != nil {
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load counters")
	}
	return total, stageMinted, nil
}

// Minted reports whether a name has been consumed.
func (s *Service) Minted(ctx context.Context, name string) (bool, error) {
	minted, err := s.store.NameMinted(ctx, name)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check name registry")
	}
	return minted, nil
}

// FreeMintUsed reports whether an account consumed its free mint.
func (s *Service) FreeMintUsed(ctx context.Context, account common.Address) (bool, error) {
	used, err := s.store.FreeMintUsed(ctx, account)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load free mint claim")
	}
	return used, nil
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
