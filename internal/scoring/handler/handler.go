package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quorum/internal/scoring/models"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/httputil"
	"quorum/pkg/requestcontext"
)

// Service defines the participant-facing scoring operations.
type Service interface {
	NextItem(ctx context.Context, participantID id.ParticipantID) (*models.Assignment, error)
	RecordJudgement(ctx context.Context, participantID id.ParticipantID, itemID id.ItemID, verdict models.Verdict) (*models.Judgement, error)
	Progress(ctx context.Context, participantID id.ParticipantID) (*models.Progress, error)
	ListOwnJudgements(ctx context.Context, participantID id.ParticipantID) ([]*models.Judgement, error)
}

// Handler exposes the participant session endpoints. The session token
// scopes every route to the authenticated participant; no participant ID
// ever appears in a URL.
type Handler struct {
	scoring            Service
	requireParticipant func(http.Handler) http.Handler
	logger             *slog.Logger
}

func New(scoring Service, requireParticipant func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		scoring:            scoring,
		requireParticipant: requireParticipant,
		logger:             logger,
	}
}

// Register mounts the participant routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/participants/me", func(r chi.Router) {
		r.Use(h.requireParticipant)
		r.Get("/next", h.handleNextItem)
		r.Post("/judgements", h.handleSubmitJudgement)
		r.Get("/judgements", h.handleListJudgements)
		r.Get("/progress", h.handleProgress)
	})
}

type nextItemResponse struct {
	ItemID   *id.ItemID `json:"item_id"`
	Position int        `json:"position,omitempty"`
	Done     bool       `json:"done"`
}

func (h *Handler) handleNextItem(w http.ResponseWriter, r *http.Request) {
	participantID := requestcontext.ParticipantID(r.Context())
	assignment, err := h.scoring.NextItem(r.Context(), participantID)
	if err != nil {
		h.logError(r, "failed to load next item", err)
		httputil.WriteError(w, err)
		return
	}
	if assignment == nil {
		httputil.WriteJSON(w, http.StatusOK, nextItemResponse{Done: true})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nextItemResponse{
		ItemID:   &assignment.ItemID,
		Position: assignment.Position,
	})
}

type submitJudgementRequest struct {
	ItemID        string `json:"item_id"`
	Rating        int    `json:"rating"`
	Justification string `json:"justification"`
	Notes         string `json:"notes"`
	SecondsSpent  int    `json:"seconds_spent"`
}

func (h *Handler) handleSubmitJudgement(w http.ResponseWriter, r *http.Request) {
	participantID := requestcontext.ParticipantID(r.Context())
	req, err := httputil.Decode[submitJudgementRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	itemID, err := id.ParseItemID(req.ItemID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidParameter, "invalid item id"))
		return
	}
	judgement, err := h.scoring.RecordJudgement(r.Context(), participantID, itemID, models.Verdict{
		Rating:        req.Rating,
		Justification: req.Justification,
		Notes:         req.Notes,
		SecondsSpent:  req.SecondsSpent,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeStorageUnavailable) {
			h.logError(r, "failed to record judgement", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, judgement)
}

func (h *Handler) handleListJudgements(w http.ResponseWriter, r *http.Request) {
	participantID := requestcontext.ParticipantID(r.Context())
	judgements, err := h.scoring.ListOwnJudgements(r.Context(), participantID)
	if err != nil {
		h.logError(r, "failed to list judgements", err)
		httputil.WriteError(w, err)
		return
	}
	if judgements == nil {
		judgements = []*models.Judgement{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"judgements": judgements})
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	participantID := requestcontext.ParticipantID(r.Context())
	progress, err := h.scoring.Progress(r.Context(), participantID)
	if err != nil {
		h.logError(r, "failed to load progress", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, progress)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err,
	)
}
