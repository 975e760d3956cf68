package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"quorum/internal/campaign/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/platform/tx"
)

// Postgres persists campaigns in PostgreSQL. The frozen item list and the
// allocation plan live in campaign_items and campaign_buckets; both are
// written once at creation time and never updated.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed campaign store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Postgres) Create(ctx context.Context, campaign *models.Campaign) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO campaigns (
			id, name, access_code, redundancy, expected_participants,
			usage_ceiling, expires_at, claim_count,
			total_slots, bucket_capacity, coverage_complete, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		campaign.ID.String(), campaign.Name, campaign.AccessCode,
		campaign.Redundancy, campaign.ExpectedParticipants,
		campaign.UsageCeiling, campaign.ExpiresAt, campaign.ClaimCount,
		campaign.Plan.Stats.TotalSlots, campaign.Plan.Stats.BucketCapacity,
		campaign.Plan.Stats.CoverageComplete, campaign.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create campaign: %w", err)
	}

	for pos, itemID := range campaign.Items {
		_, err := q.ExecContext(ctx, `
			INSERT INTO campaign_items (campaign_id, position, item_id)
			VALUES ($1, $2, $3)`,
			campaign.ID.String(), pos, itemID.String(),
		)
		if err != nil {
			return fmt.Errorf("create campaign item: %w", err)
		}
	}
	for bucketIndex, bucket := range campaign.Plan.Buckets {
		for pos, itemID := range bucket {
			_, err := q.ExecContext(ctx, `
				INSERT INTO campaign_buckets (campaign_id, bucket_index, position, item_id)
				VALUES ($1, $2, $3, $4)`,
				campaign.ID.String(), bucketIndex, pos, itemID.String(),
			)
			if err != nil {
				return fmt.Errorf("create campaign bucket: %w", err)
			}
		}
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, campaignID id.CampaignID) (*models.Campaign, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, campaignSelect+` WHERE id = $1`, campaignID.String())
	return s.loadCampaign(ctx, q, row)
}

func (s *Postgres) FindByCode(ctx context.Context, accessCode string) (*models.Campaign, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, campaignSelect+` WHERE access_code = $1`, accessCode)
	return s.loadCampaign(ctx, q, row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Campaign, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, campaignSelect+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []*models.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	for _, campaign := range out {
		if err := s.attachPlan(ctx, q, campaign); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// NextClaimIndex relies on a single conditional UPDATE so concurrent claims
// serialize on the row without an explicit lock.
func (s *Postgres) NextClaimIndex(ctx context.Context, campaignID id.CampaignID, limit int) (int, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var index int
	err := q.QueryRowContext(ctx, `
		UPDATE campaigns SET claim_count = claim_count + 1
		WHERE id = $1 AND claim_count < $2
		RETURNING claim_count - 1`,
		campaignID.String(), limit,
	).Scan(&index)
	if err == nil {
		return index, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("claim index: %w", err)
	}

	// No row updated: either the campaign does not exist or its counter
	// reached the limit.
	var one int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM campaigns WHERE id = $1`, campaignID.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("claim index: %w", err)
	}
	return 0, sentinel.ErrExhausted
}

func (s *Postgres) CreateParticipant(ctx context.Context, participant *models.Participant) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO participants (id, campaign_id, identity_key, display_name, bucket_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		participant.ID.String(), participant.CampaignID.String(),
		participant.IdentityKey, participant.DisplayName,
		participant.BucketIndex, participant.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

func (s *Postgres) FindParticipant(ctx context.Context, participantID id.ParticipantID) (*models.Participant, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, campaign_id, identity_key, display_name, bucket_index, created_at
		FROM participants WHERE id = $1`,
		participantID.String(),
	)
	return scanParticipant(row)
}

func (s *Postgres) FindParticipantByIdentity(ctx context.Context, campaignID id.CampaignID, identityKey string) (*models.Participant, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, campaign_id, identity_key, display_name, bucket_index, created_at
		FROM participants WHERE campaign_id = $1 AND identity_key = $2`,
		campaignID.String(), identityKey,
	)
	return scanParticipant(row)
}

func (s *Postgres) CountParticipants(ctx context.Context, campaignID id.CampaignID) (int, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM participants WHERE campaign_id = $1`,
		campaignID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

const campaignSelect = `
	SELECT id, name, access_code, redundancy, expected_participants,
		usage_ceiling, expires_at, claim_count,
		total_slots, bucket_capacity, coverage_complete, created_at
	FROM campaigns`

func (s *Postgres) loadCampaign(ctx context.Context, q tx.Querier, row rowScanner) (*models.Campaign, error) {
	campaign, err := scanCampaign(row)
	if err != nil {
		return nil, err
	}
	if err := s.attachPlan(ctx, q, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *Postgres) attachPlan(ctx context.Context, q tx.Querier, campaign *models.Campaign) error {
	rows, err := q.QueryContext(ctx, `
		SELECT item_id FROM campaign_items
		WHERE campaign_id = $1 ORDER BY position`,
		campaign.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("load campaign items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rawID string
		if err := rows.Scan(&rawID); err != nil {
			return fmt.Errorf("scan campaign item: %w", err)
		}
		itemID, err := id.ParseItemID(rawID)
		if err != nil {
			return fmt.Errorf("scan campaign item id: %w", err)
		}
		campaign.Items = append(campaign.Items, itemID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load campaign items: %w", err)
	}

	bucketRows, err := q.QueryContext(ctx, `
		SELECT bucket_index, item_id FROM campaign_buckets
		WHERE campaign_id = $1 ORDER BY bucket_index, position`,
		campaign.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("load campaign buckets: %w", err)
	}
	defer bucketRows.Close()

	buckets := make([]models.Bucket, campaign.ExpectedParticipants)
	for bucketRows.Next() {
		var bucketIndex int
		var rawID string
		if err := bucketRows.Scan(&bucketIndex, &rawID); err != nil {
			return fmt.Errorf("scan campaign bucket: %w", err)
		}
		itemID, err := id.ParseItemID(rawID)
		if err != nil {
			return fmt.Errorf("scan campaign bucket id: %w", err)
		}
		if bucketIndex >= len(buckets) {
			grown := make([]models.Bucket, bucketIndex+1)
			copy(grown, buckets)
			buckets = grown
		}
		buckets[bucketIndex] = append(buckets[bucketIndex], itemID)
	}
	if err := bucketRows.Err(); err != nil {
		return fmt.Errorf("load campaign buckets: %w", err)
	}
	campaign.Plan.Buckets = buckets
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	var campaign models.Campaign
	var rawID string
	err := row.Scan(
		&rawID, &campaign.Name, &campaign.AccessCode,
		&campaign.Redundancy, &campaign.ExpectedParticipants,
		&campaign.UsageCeiling, &campaign.ExpiresAt, &campaign.ClaimCount,
		&campaign.Plan.Stats.TotalSlots, &campaign.Plan.Stats.BucketCapacity,
		&campaign.Plan.Stats.CoverageComplete, &campaign.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}
	campaignID, err := id.ParseCampaignID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan campaign id: %w", err)
	}
	campaign.ID = campaignID
	return &campaign, nil
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var participant models.Participant
	var rawID, rawCampaignID string
	err := row.Scan(
		&rawID, &rawCampaignID, &participant.IdentityKey,
		&participant.DisplayName, &participant.BucketIndex, &participant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	participantID, err := id.ParseParticipantID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan participant id: %w", err)
	}
	campaignID, err := id.ParseCampaignID(rawCampaignID)
	if err != nil {
		return nil, fmt.Errorf("scan participant campaign id: %w", err)
	}
	participant.ID = participantID
	participant.CampaignID = campaignID
	return &participant, nil
}
