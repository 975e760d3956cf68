package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quorum/internal/catalog/models"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/httputil"
	"quorum/pkg/requestcontext"
)

// Service defines the catalog operations the handler exposes.
type Service interface {
	RegisterItem(ctx context.Context, label, batch string) (*models.Item, error)
	GetItem(ctx context.Context, itemID id.ItemID) (*models.Item, error)
	ListBatch(ctx context.Context, batch string) ([]*models.Item, error)
}

// Withdrawer retires an item and cancels its pending assignments. Satisfied
// by the scoring service, which owns the cascade.
type Withdrawer interface {
	WithdrawItem(ctx context.Context, itemID id.ItemID) (int, error)
}

// Handler exposes the operator-facing catalog endpoints.
type Handler struct {
	catalog         Service
	withdrawer      Withdrawer
	requireOperator func(http.Handler) http.Handler
	logger          *slog.Logger
}

func New(catalog Service, withdrawer Withdrawer, requireOperator func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:         catalog,
		withdrawer:      withdrawer,
		requireOperator: requireOperator,
		logger:          logger,
	}
}

// Register mounts the catalog routes. All of them require the operator
// capability.
func (h *Handler) Register(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Use(h.requireOperator)
		r.Post("/", h.handleRegisterItem)
		r.Get("/", h.handleListBatch)
		r.Get("/{itemID}", h.handleGetItem)
		r.Delete("/{itemID}", h.handleWithdrawItem)
	})
}

type registerItemRequest struct {
	Label string `json:"label"`
	Batch string `json:"batch"`
}

func (h *Handler) handleRegisterItem(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[registerItemRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.catalog.RegisterItem(r.Context(), req.Label, req.Batch)
	if err != nil {
		h.logError(r, "failed to register item", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleListBatch(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListBatch(r.Context(), r.URL.Query().Get("batch"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []*models.Item{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid item id"))
		return
	}
	item, err := h.catalog.GetItem(r.Context(), itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleWithdrawItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid item id"))
		return
	}
	cancelled, err := h.withdrawer.WithdrawItem(r.Context(), itemID)
	if err != nil {
		h.logError(r, "failed to withdraw item", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"cancelled_assignments": cancelled})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err,
	)
}
