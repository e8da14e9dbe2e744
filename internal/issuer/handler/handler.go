package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"zoopr/internal/issuer/models"
	"zoopr/internal/platform/middleware"
	"zoopr/internal/voucher"
	dErrors "zoopr/pkg/domain-errors"
	"zoopr/pkg/platform/httputil"
)

// Service defines the name-token issuer operations the HTTP layer exposes.
type Service interface {
	Mint(ctx context.Context, caller common.Address, v *voucher.Voucher, payment *big.Int) (*models.Token, error)
	FreeMint(ctx context.Context, caller common.Address, v *voucher.Voucher) (*models.Token, error)
	UpdateStageDetail(ctx context.Context, caller common.Address, label string, cap uint64, fee *big.Int) error
	UpdateCap(ctx context.Context, caller common.Address, cap uint64) error
	GrantValidator(ctx context.Context, caller, validator common.Address) error
	RevokeValidator(ctx context.Context, caller, validator common.Address) error
	Stage(ctx context.Context) (models.StageDetail, error)
	Cap(ctx context.Context) (uint64, error)
	Counters(ctx context.Context) (total, stageMinted uint64, err error)
	Minted(ctx context.Context, name string) (bool, error)
	FreeMintUsed(ctx context.Context, account common.Address) (bool, error)
	Token(ctx context.Context, id uint64) (*models.Token, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public name-token endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/unts/mint", h.HandleMint)
	r.Post("/api/unts/free-mint", h.HandleFreeMint)
	r.Get("/api/unts", h.HandleCollection)
	r.Get("/api/unts/tokens/{id}", h.HandleToken)
	r.Get("/api/unts/names/{username}", h.HandleName)
	r.Get("/api/unts/accounts/{address}/free-mint", h.HandleFreeMintStatus)
}

// RegisterAdmin mounts the admin endpoints; the router wraps them with admin
// auth middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/unts/stage", h.HandleUpdateStage)
	r.Post("/admin/unts/cap", h.HandleUpdateCap)
	r.Post("/admin/unts/validators", h.HandleGrantValidator)
	r.Delete("/admin/unts/validators", h.HandleRevokeValidator)
}

func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[MintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	tok, err := h.service.Mint(ctx, req.CallerAddress(), &req.Voucher, req.PaymentAmount())
	if err != nil {
		h.logger.WarnContext(ctx, "unt mint rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toTokenResponse(tok))
}

func (h *Handler) HandleFreeMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[FreeMintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	tok, err := h.service.FreeMint(ctx, req.CallerAddress(), &req.Voucher)
	if err != nil {
		h.logger.WarnContext(ctx, "unt free mint rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toTokenResponse(tok))
}

func (h *Handler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stage, err := h.service.Stage(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cap, err := h.service.Cap(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	total, stageMinted, err := h.service.Counters(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toCollectionResponse(stage, cap, total, stageMinted))
}

func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	id, err := parseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tok, err := h.service.Token(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(tok))
}

func (h *Handler) HandleName(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "username is required"))
		return
	}

	minted, err := h.service.Minted(r.Context(), username)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, NameResponse{Username: username, Minted: minted})
}

func (h *Handler) HandleFreeMintStatus(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account address"))
		return
	}
	account := common.HexToAddress(raw)

	used, err := h.service.FreeMintUsed(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FreeMintStatusResponse{Account: account.Hex(), Used: used})
}

func (h *Handler) HandleUpdateStage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[UpdateStageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := middleware.GetCaller(ctx)
	if err := h.service.UpdateStageDetail(ctx, caller, req.Label, req.Cap, req.FeeAmount()); err != nil {
		h.logger.WarnContext(ctx, "unt stage update rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleUpdateCap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[UpdateCapRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := middleware.GetCaller(ctx)
	if err := h.service.UpdateCap(ctx, caller, req.Cap); err != nil {
		h.logger.WarnContext(ctx, "unt cap update rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGrantValidator(w http.ResponseWriter, r *http.Request) {
	h.handleValidatorChange(w, r, h.service.GrantValidator)
}

func (h *Handler) HandleRevokeValidator(w http.ResponseWriter, r *http.Request) {
	h.handleValidatorChange(w, r, h.service.RevokeValidator)
}

func (h *Handler) handleValidatorChange(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, caller, validator common.Address) error) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[ValidatorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := middleware.GetCaller(ctx)
	if err := apply(ctx, caller, req.ValidatorAddress()); err != nil {
		h.logger.WarnContext(ctx, "validator role change rejected", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseTokenID(raw string) (uint64, error) {
	id, ok := new(big.Int).SetString(raw, 10)
	if !ok || !id.IsUint64() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid token id")
	}
	return id.Uint64(), nil
}
