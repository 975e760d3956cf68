package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	catalogmodels "quorum/internal/catalog/models"
	"quorum/internal/events"
	"quorum/internal/scoring/metrics"
	"quorum/internal/scoring/models"
	"quorum/internal/scoring/progresscache"
	"quorum/internal/scoring/store"
	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/requestcontext"
)

// Catalog is the slice of the catalog module the scoring module needs:
// flipping an item to withdrawn before its pending assignments are
// cancelled.
type Catalog interface {
	WithdrawItem(ctx context.Context, itemID id.ItemID) (*catalogmodels.Item, error)
}

// Service runs the judgement state machine: handing out the next pending
// assignment, recording judgements exactly once, and cancelling assignments
// when an item is withdrawn.
type Service struct {
	assignments store.Store
	catalog     Catalog
	cache       *progresscache.Cache
	emitter     events.Emitter
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tx          StoreTx
	tracer      trace.Tracer
}

type serviceConfig struct {
	cache   *progresscache.Cache
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

// WithProgressCache installs the Redis read-through cache for progress
// summaries.
func WithProgressCache(cache *progresscache.Cache) Option {
	return func(cfg *serviceConfig) { cfg.cache = cache }
}

// WithStoreTx installs a transaction runner spanning the scoring and
// catalog stores. Defaults to a mutex for the in-memory stores.
func WithStoreTx(tx StoreTx) Option {
	return func(cfg *serviceConfig) { cfg.tx = tx }
}

func New(assignments store.Store, catalog Catalog, opts ...Option) (*Service, error) {
	if assignments == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "scoring store is required")
	}
	if catalog == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "catalog is required")
	}
	cfg := &serviceConfig{
		emitter: events.Noop{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	storeTx := cfg.tx
	if storeTx == nil {
		storeTx = newInMemoryStoreTx()
	}
	return &Service{
		assignments: assignments,
		catalog:     catalog,
		cache:       cfg.cache,
		emitter:     cfg.emitter,
		metrics:     cfg.metrics,
		logger:      cfg.logger,
		tx:          storeTx,
		tracer:      otel.Tracer("quorum/internal/scoring"),
	}, nil
}

// NextItem returns the participant's next pending assignment in bucket
// order, or nil when the bucket is exhausted.
func (s *Service) NextItem(ctx context.Context, participantID id.ParticipantID) (*models.Assignment, error) {
	if participantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "participant id is required")
	}
	assignment, err := s.assignments.NextPending(ctx, participantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to load next assignment")
	}
	return assignment, nil
}

// RecordJudgement records a verdict for one of the participant's pending
// assignments. Exactly one of two racing submissions for the same assignment
// succeeds; the loser gets DuplicateJudgement. A rejected submission leaves
// no trace.
func (s *Service) RecordJudgement(ctx context.Context, participantID id.ParticipantID, itemID id.ItemID, verdict models.Verdict) (*models.Judgement, error) {
	if participantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "participant id is required")
	}
	if itemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidParameter, "item id is required")
	}

	ctx, span := s.tracer.Start(ctx, "scoring.record_judgement",
		trace.WithAttributes(attribute.String("participant.id", participantID.String())),
	)
	defer span.End()

	assignment, err := s.assignments.FindByParticipantItem(ctx, participantID, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementJudgementsRejected("no_such_assignment")
			return nil, dErrors.New(dErrors.CodeNoSuchAssignment, "no assignment for this item")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to load assignment")
	}

	now := requestcontext.Now(ctx)
	judgement, err := models.NewJudgement(id.JudgementID(uuid.New()), assignment, verdict, now)
	if err != nil {
		s.metrics.IncrementJudgementsRejected("invalid")
		return nil, err
	}

	if err := s.assignments.Complete(ctx, judgement, now); err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			s.metrics.IncrementJudgementsRejected("duplicate")
			return nil, dErrors.New(dErrors.CodeDuplicateJudgement, "assignment already judged")
		case errors.Is(err, sentinel.ErrInvalidState), errors.Is(err, sentinel.ErrNotFound):
			s.metrics.IncrementJudgementsRejected("no_such_assignment")
			return nil, dErrors.New(dErrors.CodeNoSuchAssignment, "no pending assignment for this item")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to record judgement")
		}
	}

	s.cache.Invalidate(ctx, participantID)
	s.metrics.IncrementJudgementsRecorded(strconv.Itoa(judgement.Rating))
	s.emitter.Emit(ctx, events.Event{
		Type:          events.TypeJudgementRecorded,
		CampaignID:    judgement.CampaignID,
		ParticipantID: participantID,
		ItemID:        itemID,
		OccurredAt:    now,
	})
	s.logger.InfoContext(ctx, "judgement recorded",
		"request_id", requestcontext.RequestID(ctx),
		"participant_id", participantID,
		"item_id", itemID,
		"rating", judgement.Rating,
	)
	return judgement, nil
}

// WithdrawItem retires an item from the catalog and cancels its pending
// assignments across all participants. Completed judgements are untouched.
// Returns the number of cancelled assignments.
//
// Cancellation and the status flip run in one transaction, with the flip
// last: a failed withdraw leaves the item active and retryable.
func (s *Service) WithdrawItem(ctx context.Context, itemID id.ItemID) (int, error) {
	var item *catalogmodels.Item
	var affected []id.ParticipantID
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		cancelled, err := s.assignments.CancelByItem(txCtx, itemID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to cancel assignments")
		}
		withdrawn, err := s.catalog.WithdrawItem(txCtx, itemID)
		if err != nil {
			return err
		}
		item = withdrawn
		affected = cancelled
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.cache.Invalidate(ctx, affected...)
	s.metrics.AddAssignmentsCancelled(len(affected))
	s.emitter.Emit(ctx, events.Event{
		Type:       events.TypeItemWithdrawn,
		ItemID:     item.ID,
		OccurredAt: requestcontext.Now(ctx),
	})
	s.logger.InfoContext(ctx, "item withdrawn from scoring",
		"request_id", requestcontext.RequestID(ctx),
		"item_id", itemID,
		"cancelled", len(affected),
	)
	return len(affected), nil
}

// Progress returns the participant's judgement counts, served from the
// cache when fresh.
func (s *Service) Progress(ctx context.Context, participantID id.ParticipantID) (*models.Progress, error) {
	if participantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "participant id is required")
	}
	if progress, ok := s.cache.Get(ctx, participantID); ok {
		s.metrics.IncrementProgressCache("hit")
		return progress, nil
	}
	s.metrics.IncrementProgressCache("miss")

	progress, err := s.assignments.Progress(ctx, participantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to load progress")
	}
	s.cache.Put(ctx, participantID, progress)
	return progress, nil
}

// ListOwnJudgements returns everything the participant has judged so far.
func (s *Service) ListOwnJudgements(ctx context.Context, participantID id.ParticipantID) ([]*models.Judgement, error) {
	if participantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "participant id is required")
	}
	judgements, err := s.assignments.ListJudgements(ctx, participantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "failed to list judgements")
	}
	return judgements, nil
}

// CreateAssignments writes the pending assignments for a freshly claimed
// bucket. Called by the campaign module inside the claim transaction.
func (s *Service) CreateAssignments(ctx context.Context, participantID id.ParticipantID, campaignID id.CampaignID, items []id.ItemID, now time.Time) error {
	assignments := make([]*models.Assignment, len(items))
	for i, itemID := range items {
		assignments[i] = &models.Assignment{
			ID:            id.AssignmentID(uuid.New()),
			ParticipantID: participantID,
			CampaignID:    campaignID,
			ItemID:        itemID,
			Position:      i,
			Status:        models.AssignmentPending,
			CreatedAt:     now,
		}
	}
	return s.assignments.CreateAssignments(ctx, assignments)
}

// CountByCampaign exposes the campaign's assignment counters for usage
// listings.
func (s *Service) CountByCampaign(ctx context.Context, campaignID id.CampaignID) (int, int, error) {
	return s.assignments.CountByCampaign(ctx, campaignID)
}
