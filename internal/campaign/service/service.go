package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	catalogmodels "quorum/internal/catalog/models"
	"quorum/internal/campaign/metrics"
	"quorum/internal/campaign/models"
	"quorum/internal/campaign/planner"
	"quorum/internal/campaign/store"
	"quorum/internal/events"
	"quorum/internal/platform/token"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/secrets"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/requestcontext"
)

// ItemSource supplies the active items a campaign snapshots at creation
// time. Satisfied by the catalog service.
type ItemSource interface {
	ListBatch(ctx context.Context, batch string) ([]*catalogmodels.Item, error)
}

// Assignments is the slice of the scoring module the campaign module needs:
// writing the pending assignments of a freshly claimed bucket inside the
// claim transaction, and counting them for usage listings.
type Assignments interface {
	CreateAssignments(ctx context.Context, participantID id.ParticipantID, campaignID id.CampaignID, items []id.ItemID, now time.Time) error
	CountByCampaign(ctx context.Context, campaignID id.CampaignID) (total, completed int, err error)
}

// Service orchestrates campaign lifecycle: plan computation at creation and
// the linearizable bucket claim at registration.
type Service struct {
	campaigns   store.Store
	items       ItemSource
	assignments Assignments
	tokens      *token.Service
	emitter     events.Emitter
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tx          StoreTx
	tracer      trace.Tracer
}

type serviceConfig struct {
	emitter events.Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger
	tx      StoreTx
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *serviceConfig) { cfg.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *serviceConfig) { cfg.metrics = m }
}

func WithEmitter(emitter events.Emitter) Option {
	return func(cfg *serviceConfig) { cfg.emitter = emitter }
}

// WithStoreTx installs a transaction runner spanning the campaign and
// scoring stores. Defaults to a mutex for the in-memory stores.
func WithStoreTx(tx StoreTx) Option {
	return func(cfg *serviceConfig) { cfg.tx = tx }
}

func New(campaigns store.Store, items ItemSource, assignments Assignments, tokens *token.Service, opts ...Option) (*Service, error) {
	if campaigns == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "campaign store is required")
	}
	if items == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "item source is required")
	}
	if assignments == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "assignment writer is required")
	}
	if tokens == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "token service is required")
	}
	cfg := &serviceConfig{
		emitter: events.Noop{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	tx := cfg.tx
	if tx == nil {
		tx = newInMemoryStoreTx()
	}
	return &Service{
		campaigns:   campaigns,
		items:       items,
		assignments: assignments,
		tokens:      tokens,
		emitter:     cfg.emitter,
		metrics:     cfg.metrics,
		logger:      cfg.logger,
		tx:          tx,
		tracer:      otel.Tracer("quorum/internal/campaign"),
	}, nil
}

// CreateCampaignParams carries the operator's inputs for a new campaign.
type CreateCampaignParams struct {
	Name                 string
	Batch                string
	Redundancy           int
	ExpectedParticipants int
	UsageCeiling         int
	ExpiresAt            time.Time
}

// CreateCampaign snapshots the batch's active items, computes the
// allocation plan once, and persists the campaign under a fresh access code.
func (s *Service) CreateCampaign(ctx context.Context, params CreateCampaignParams) (*models.Campaign, error) {
	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "campaign name is required")
	}
	now := requestcontext.Now(ctx)
	if !params.ExpiresAt.IsZero() && !params.ExpiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "expiry must lie in the future")
	}
	if params.UsageCeiling < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "usage ceiling cannot be negative")
	}

	items, err := s.items.ListBatch(ctx, params.Batch)
	if err != nil {
		return nil, err
	}
	itemIDs := make([]id.ItemID, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}

	plan, err := planner.Plan(itemIDs, params.Redundancy, params.ExpectedParticipants)
	if err != nil {
		return nil, err
	}

	accessCode, err := secrets.GenerateAccessCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate access code")
	}

	campaign, err := models.NewCampaign(
		id.CampaignID(uuid.New()), params.Name, accessCode, itemIDs,
		params.Redundancy, params.ExpectedParticipants, params.UsageCeiling,
		params.ExpiresAt, now,
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidParameter, "invalid campaign")
	}
	campaign.Plan = *plan

	if err := s.campaigns.Create(ctx, campaign); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "campaign already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to create campaign")
	}

	s.metrics.IncrementCampaignsCreated(plan.Stats.CoverageComplete)
	s.emitter.Emit(ctx, events.Event{
		Type:       events.TypeCampaignCreated,
		CampaignID: campaign.ID,
		OccurredAt: now,
	})
	s.logger.InfoContext(ctx, "campaign created",
		"request_id", requestcontext.RequestID(ctx),
		"campaign_id", campaign.ID,
		"items", len(itemIDs),
		"redundancy", params.Redundancy,
		"expected_participants", params.ExpectedParticipants,
		"coverage_complete", plan.Stats.CoverageComplete,
	)
	return campaign, nil
}

// Registration is the outcome of RegisterParticipant: the bound participant,
// the frozen item order of their bucket, and a session token.
type Registration struct {
	Participant *models.Participant
	Items       []id.ItemID
	Token       string
	Rejoined    bool
}

// RegisterParticipant claims the next free bucket for the given identity, or
// returns the already-claimed bucket when the identity registered before.
// The claim is linearizable: under any interleaving each bucket index is
// handed to exactly one participant, and a failed claim leaves no trace.
func (s *Service) RegisterParticipant(ctx context.Context, accessCode, identityKey, displayName string) (*Registration, error) {
	accessCode = strings.TrimSpace(accessCode)
	identityKey = strings.TrimSpace(identityKey)
	displayName = strings.TrimSpace(displayName)
	if accessCode == "" {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "access code is required")
	}
	if identityKey == "" {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "identity key is required")
	}

	campaign, err := s.campaigns.FindByCode(ctx, accessCode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown access code")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to load campaign")
	}

	now := requestcontext.Now(ctx)
	if campaign.IsExpired(now) {
		s.metrics.IncrementRegistration("expired")
		return nil, dErrors.New(dErrors.CodeCampaignExpired, "campaign has expired")
	}

	// Happy rejoin path before opening a transaction.
	if existing, err := s.campaigns.FindParticipantByIdentity(ctx, campaign.ID, identityKey); err == nil {
		return s.rejoin(ctx, campaign, existing, now)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to load participant")
	}

	ctx, span := s.tracer.Start(ctx, "campaign.claim",
		trace.WithAttributes(attribute.String("campaign.id", campaign.ID.String())),
	)
	defer span.End()
	start := time.Now()

	var participant *models.Participant
	var rejoined bool
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// Re-check under the transaction: a concurrent registration with
		// the same identity may have won the race since the read above.
		if existing, err := s.campaigns.FindParticipantByIdentity(txCtx, campaign.ID, identityKey); err == nil {
			participant = existing
			rejoined = true
			return nil
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to load participant")
		}

		index, err := s.campaigns.NextClaimIndex(txCtx, campaign.ID, campaign.ClaimLimit())
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrExhausted):
				return dErrors.New(dErrors.CodeCapacityExceeded, "campaign has no free participant slots")
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "campaign not found")
			default:
				return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to claim slot")
			}
		}

		p := &models.Participant{
			ID:          id.ParticipantID(uuid.New()),
			CampaignID:  campaign.ID,
			IdentityKey: identityKey,
			DisplayName: displayName,
			BucketIndex: index,
			CreatedAt:   now,
		}
		if err := s.campaigns.CreateParticipant(txCtx, p); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "identity already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to create participant")
		}
		if err := s.assignments.CreateAssignments(txCtx, p.ID, campaign.ID, campaign.Plan.Buckets[index], now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to create assignments")
		}
		participant = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if dErrors.HasCode(err, dErrors.CodeCapacityExceeded) {
			s.metrics.IncrementRegistration("capacity_exceeded")
		}
		// A conflict means a concurrent registration with this identity
		// committed after the in-transaction re-check read its snapshot.
		// The row exists now; resolve to it instead of failing the caller.
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			if existing, findErr := s.campaigns.FindParticipantByIdentity(ctx, campaign.ID, identityKey); findErr == nil {
				return s.rejoin(ctx, campaign, existing, now)
			}
		}
		return nil, err
	}
	s.metrics.ObserveClaimLatency(time.Since(start))

	// The transaction resolved a lost identity race to the existing row.
	if rejoined {
		return s.rejoin(ctx, campaign, participant, now)
	}

	s.metrics.IncrementRegistration("claimed")
	s.emitter.Emit(ctx, events.Event{
		Type:          events.TypeParticipantRegistered,
		CampaignID:    campaign.ID,
		ParticipantID: participant.ID,
		OccurredAt:    now,
	})
	s.logger.InfoContext(ctx, "participant registered",
		"request_id", requestcontext.RequestID(ctx),
		"campaign_id", campaign.ID,
		"participant_id", participant.ID,
		"bucket_index", participant.BucketIndex,
	)
	return s.buildRegistration(campaign, participant, now, false)
}

// rejoin reissues the already-claimed bucket without touching the counter.
func (s *Service) rejoin(ctx context.Context, campaign *models.Campaign, participant *models.Participant, now time.Time) (*Registration, error) {
	s.metrics.IncrementRegistration("rejoined")
	s.logger.InfoContext(ctx, "participant rejoined",
		"request_id", requestcontext.RequestID(ctx),
		"campaign_id", campaign.ID,
		"participant_id", participant.ID,
	)
	return s.buildRegistration(campaign, participant, now, true)
}

func (s *Service) buildRegistration(campaign *models.Campaign, participant *models.Participant, now time.Time, rejoined bool) (*Registration, error) {
	sessionToken, err := s.tokens.Mint(participant.ID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint session token")
	}
	bucket := campaign.Plan.Buckets[participant.BucketIndex]
	return &Registration{
		Participant: participant,
		Items:       append([]id.ItemID(nil), bucket...),
		Token:       sessionToken,
		Rejoined:    rejoined,
	}, nil
}

// GetCampaign returns one campaign with its usage counters.
func (s *Service) GetCampaign(ctx context.Context, campaignID id.CampaignID) (*models.CampaignUsage, error) {
	if campaignID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "campaign id is required")
	}
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "campaign not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to load campaign")
	}
	return s.usage(ctx, campaign)
}

// ListCampaigns returns all campaigns with usage counters, newest first.
func (s *Service) ListCampaigns(ctx context.Context) ([]*models.CampaignUsage, error) {
	campaigns, err := s.campaigns.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to list campaigns")
	}
	out := make([]*models.CampaignUsage, 0, len(campaigns))
	for _, campaign := range campaigns {
		usage, err := s.usage(ctx, campaign)
		if err != nil {
			return nil, err
		}
		out = append(out, usage)
	}
	return out, nil
}

// FindParticipant loads one participant, for the scoring module's handlers.
func (s *Service) FindParticipant(ctx context.Context, participantID id.ParticipantID) (*models.Participant, error) {
	if participantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "participant id is required")
	}
	participant, err := s.campaigns.FindParticipant(ctx, participantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "participant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to load participant")
	}
	return participant, nil
}

func (s *Service) usage(ctx context.Context, campaign *models.Campaign) (*models.CampaignUsage, error) {
	participants, err := s.campaigns.CountParticipants(ctx, campaign.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to count participants")
	}
	total, completed, err := s.assignments.CountByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to count assignments")
	}
	return &models.CampaignUsage{
		Campaign:     campaign,
		Participants: participants,
		Completed:    completed,
		Assigned:     total,
	}, nil
}
