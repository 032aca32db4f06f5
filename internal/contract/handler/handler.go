package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petchain/internal/contract"
	"petchain/internal/contract/models"
	"petchain/pkg/platform/httputil"
	"petchain/pkg/requestcontext"
)

// Service defines the interface for transition verification.
type Service interface {
	Verify(ctx context.Context, tx contract.Transaction) (*models.Result, error)
	VerifyBatch(ctx context.Context, txs []contract.Transaction) ([]*models.Result, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transitions/verify", h.HandleVerify)
	r.Post("/transitions/verify/batch", h.HandleVerifyBatch)
	r.Get("/contract/rules", h.HandleRules)
}

// HandleVerify handles POST /transitions/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req.Transaction())
	if err != nil {
		h.logger.ErrorContext(ctx, "transition verification failed",
			"request_id", requestID,
			"caller", requestcontext.Caller(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transition verified",
		"request_id", requestID,
		"caller", requestcontext.Caller(ctx),
		"fingerprint", result.Fingerprint,
		"accepted", result.Accepted,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleVerifyBatch handles POST /transitions/verify/batch requests.
func (h *Handler) HandleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[VerifyBatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	results, err := h.service.VerifyBatch(ctx, req.ParsedTransactions())
	if err != nil {
		h.logger.ErrorContext(ctx, "batch verification failed",
			"request_id", requestID,
			"caller", requestcontext.Caller(ctx),
			"size", len(req.Transactions),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := FromResults(results)
	h.logger.InfoContext(ctx, "batch verified",
		"request_id", requestID,
		"caller", requestcontext.Caller(ctx),
		"size", len(results),
		"accepted", resp.Accepted,
		"rejected", resp.Rejected,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleRules handles GET /contract/rules requests.
func (h *Handler) HandleRules(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromRules())
}
