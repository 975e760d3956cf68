package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quorum/internal/campaign/models"
	"quorum/internal/campaign/service"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/httputil"
	"quorum/pkg/requestcontext"
)

// Service defines the campaign operations the handler exposes.
type Service interface {
	CreateCampaign(ctx context.Context, params service.CreateCampaignParams) (*models.Campaign, error)
	RegisterParticipant(ctx context.Context, accessCode, identityKey, displayName string) (*service.Registration, error)
	GetCampaign(ctx context.Context, campaignID id.CampaignID) (*models.CampaignUsage, error)
	ListCampaigns(ctx context.Context) ([]*models.CampaignUsage, error)
}

// Handler exposes campaign creation and listing to operators, and
// registration to anyone holding an access code.
type Handler struct {
	campaigns       Service
	requireOperator func(http.Handler) http.Handler
	logger          *slog.Logger
}

func New(campaigns Service, requireOperator func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		campaigns:       campaigns,
		requireOperator: requireOperator,
		logger:          logger,
	}
}

// Register mounts the campaign routes. Registration is deliberately open:
// the access code is the credential.
func (h *Handler) Register(r chi.Router) {
	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/register", h.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(h.requireOperator)
			r.Post("/", h.handleCreate)
			r.Get("/", h.handleList)
			r.Get("/{campaignID}", h.handleGet)
		})
	})
}

type createCampaignRequest struct {
	Name                 string     `json:"name"`
	Batch                string     `json:"batch"`
	Redundancy           int        `json:"redundancy"`
	ExpectedParticipants int        `json:"expected_participants"`
	UsageCeiling         int        `json:"usage_ceiling,omitempty"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
}

type createCampaignResponse struct {
	ID         id.CampaignID    `json:"id"`
	AccessCode string           `json:"access_code"`
	Stats      models.PlanStats `json:"stats"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[createCampaignRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	params := service.CreateCampaignParams{
		Name:                 req.Name,
		Batch:                req.Batch,
		Redundancy:           req.Redundancy,
		ExpectedParticipants: req.ExpectedParticipants,
		UsageCeiling:         req.UsageCeiling,
	}
	if req.ExpiresAt != nil {
		params.ExpiresAt = *req.ExpiresAt
	}
	campaign, err := h.campaigns.CreateCampaign(r.Context(), params)
	if err != nil {
		h.logError(r, "failed to create campaign", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createCampaignResponse{
		ID:         campaign.ID,
		AccessCode: campaign.AccessCode,
		Stats:      campaign.Plan.Stats,
	})
}

type registerRequest struct {
	AccessCode  string `json:"access_code"`
	IdentityKey string `json:"identity_key"`
	DisplayName string `json:"display_name,omitempty"`
}

type registerResponse struct {
	ParticipantID id.ParticipantID `json:"participant_id"`
	CampaignID    id.CampaignID    `json:"campaign_id"`
	Items         []id.ItemID      `json:"items"`
	Token         string           `json:"token"`
	Rejoined      bool             `json:"rejoined"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[registerRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	registration, err := h.campaigns.RegisterParticipant(r.Context(), req.AccessCode, req.IdentityKey, req.DisplayName)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeStorageUnavailable) || dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logError(r, "failed to register participant", err)
		}
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if registration.Rejoined {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, registerResponse{
		ParticipantID: registration.Participant.ID,
		CampaignID:    registration.Participant.CampaignID,
		Items:         registration.Items,
		Token:         registration.Token,
		Rejoined:      registration.Rejoined,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	usages, err := h.campaigns.ListCampaigns(r.Context())
	if err != nil {
		h.logError(r, "failed to list campaigns", err)
		httputil.WriteError(w, err)
		return
	}
	if usages == nil {
		usages = []*models.CampaignUsage{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"campaigns": usages})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	campaignID, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid campaign id"))
		return
	}
	usage, err := h.campaigns.GetCampaign(r.Context(), campaignID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usage)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err,
	)
}
