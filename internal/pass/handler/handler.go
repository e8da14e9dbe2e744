package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"zoopr/internal/pass/models"
	"zoopr/internal/platform/middleware"
	dErrors "zoopr/pkg/domain-errors"
	"zoopr/pkg/platform/httputil"
)

// Service defines the pass issuer operations the HTTP layer exposes.
type Service interface {
	Mint(ctx context.Context, caller common.Address, payment *big.Int) (*models.Token, error)
	UpdateStageDetail(ctx context.Context, caller common.Address, label string, cap uint64, fee *big.Int) error
	Stage(ctx context.Context) (models.StageDetail, error)
	Counters(ctx context.Context) (total, stageMinted uint64, err error)
	BalanceOf(ctx context.Context, account common.Address) (int, error)
	Token(ctx context.Context, id uint64) (*models.Token, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public pass endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/pass/mint", h.HandleMint)
	r.Get("/api/pass", h.HandleCollection)
	r.Get("/api/pass/tokens/{id}", h.HandleToken)
	r.Get("/api/pass/accounts/{address}/balance", h.HandleBalance)
}

// RegisterAdmin mounts the admin pass endpoints; the router wraps them with
// admin auth middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/pass/stage", h.HandleUpdateStage)
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

	tok, err := h.service.Mint(ctx, req.CallerAddress(), req.PaymentAmount())
	if err != nil {
		h.logger.WarnContext(ctx, "pass mint rejected", "error", err, "request_id", requestID)
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
	total, stageMinted, err := h.service.Counters(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toCollectionResponse(stage, total, stageMinted))
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

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account address"))
		return
	}
	account := common.HexToAddress(raw)

	balance, err := h.service.BalanceOf(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Account: account.Hex(), Balance: balance})
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
		h.logger.WarnContext(ctx, "pass stage update rejected", "error", err, "request_id", requestID)
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
