package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"quorum/internal/scoring/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/platform/tx"
)

// Postgres persists assignments and judgements in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed scoring store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Postgres) CreateAssignments(ctx context.Context, assignments []*models.Assignment) error {
	q := tx.QuerierFrom(ctx, s.db)
	for _, a := range assignments {
		_, err := q.ExecContext(ctx, `
			INSERT INTO assignments (id, participant_id, campaign_id, item_id, position, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID.String(), a.ParticipantID.String(), a.CampaignID.String(),
			a.ItemID.String(), a.Position, string(a.Status), a.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("create assignment: %w", err)
		}
	}
	return nil
}

const assignmentSelect = `
	SELECT id, participant_id, campaign_id, item_id, position, status, created_at, completed_at
	FROM assignments`

func (s *Postgres) NextPending(ctx context.Context, participantID id.ParticipantID) (*models.Assignment, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, assignmentSelect+`
		WHERE participant_id = $1 AND status = 'pending'
		ORDER BY position LIMIT 1`,
		participantID.String(),
	)
	return scanAssignment(row)
}

func (s *Postgres) FindByParticipantItem(ctx context.Context, participantID id.ParticipantID, itemID id.ItemID) (*models.Assignment, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, assignmentSelect+`
		WHERE participant_id = $1 AND item_id = $2`,
		participantID.String(), itemID.String(),
	)
	return scanAssignment(row)
}

// Complete flips the assignment with a conditional UPDATE and inserts the
// judgement in the same transaction. The status predicate makes two racing
// completions serialize on the row: the second sees zero rows updated.
func (s *Postgres) Complete(ctx context.Context, judgement *models.Judgement, completedAt time.Time) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin judgement tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	result, err := dbTx.ExecContext(ctx, `
		UPDATE assignments SET status = 'completed', completed_at = $2
		WHERE id = $1 AND status = 'pending'`,
		judgement.AssignmentID.String(), completedAt,
	)
	if err != nil {
		return fmt.Errorf("complete assignment: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete assignment: %w", err)
	}
	if updated == 0 {
		var status string
		err := dbTx.QueryRowContext(ctx, `
			SELECT status FROM assignments WHERE id = $1`,
			judgement.AssignmentID.String(),
		).Scan(&status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return sentinel.ErrNotFound
		case err != nil:
			return fmt.Errorf("complete assignment: %w", err)
		case status == string(models.AssignmentCompleted):
			return sentinel.ErrAlreadyUsed
		default:
			return sentinel.ErrInvalidState
		}
	}

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO judgements (id, assignment_id, participant_id, campaign_id, item_id, rating, justification, notes, seconds_spent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		judgement.ID.String(), judgement.AssignmentID.String(),
		judgement.ParticipantID.String(), judgement.CampaignID.String(),
		judgement.ItemID.String(), judgement.Rating, judgement.Justification,
		judgement.Notes, judgement.SecondsSpent, judgement.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create judgement: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit judgement tx: %w", err)
	}
	return nil
}

func (s *Postgres) CancelByItem(ctx context.Context, itemID id.ItemID) ([]id.ParticipantID, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		UPDATE assignments SET status = 'cancelled'
		WHERE item_id = $1 AND status = 'pending'
		RETURNING participant_id`,
		itemID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("cancel assignments: %w", err)
	}
	defer rows.Close()

	var affected []id.ParticipantID
	for rows.Next() {
		var rawID string
		if err := rows.Scan(&rawID); err != nil {
			return nil, fmt.Errorf("scan cancelled assignment: %w", err)
		}
		participantID, err := id.ParseParticipantID(rawID)
		if err != nil {
			return nil, fmt.Errorf("scan cancelled participant id: %w", err)
		}
		affected = append(affected, participantID)
	}
	return affected, rows.Err()
}

func (s *Postgres) Progress(ctx context.Context, participantID id.ParticipantID) (*models.Progress, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var progress models.Progress
	err := q.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status <> 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'pending')
		FROM assignments WHERE participant_id = $1`,
		participantID.String(),
	).Scan(&progress.Total, &progress.Completed, &progress.Remaining)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return &progress, nil
}

func (s *Postgres) ListJudgements(ctx context.Context, participantID id.ParticipantID) ([]*models.Judgement, error) {
	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT id, assignment_id, participant_id, campaign_id, item_id, rating, justification, notes, seconds_spent, created_at
		FROM judgements WHERE participant_id = $1
		ORDER BY created_at, id`,
		participantID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list judgements: %w", err)
	}
	defer rows.Close()

	var out []*models.Judgement
	for rows.Next() {
		judgement, err := scanJudgement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, judgement)
	}
	return out, rows.Err()
}

func (s *Postgres) CountByCampaign(ctx context.Context, campaignID id.CampaignID) (int, int, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var total, completed int
	err := q.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status <> 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'completed')
		FROM assignments WHERE campaign_id = $1`,
		campaignID.String(),
	).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("count assignments: %w", err)
	}
	return total, completed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var a models.Assignment
	var rawID, rawParticipantID, rawCampaignID, rawItemID, status string
	var completedAt sql.NullTime
	err := row.Scan(
		&rawID, &rawParticipantID, &rawCampaignID, &rawItemID,
		&a.Position, &status, &a.CreatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	assignmentID, err := id.ParseAssignmentID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan assignment id: %w", err)
	}
	participantID, err := id.ParseParticipantID(rawParticipantID)
	if err != nil {
		return nil, fmt.Errorf("scan assignment participant id: %w", err)
	}
	campaignID, err := id.ParseCampaignID(rawCampaignID)
	if err != nil {
		return nil, fmt.Errorf("scan assignment campaign id: %w", err)
	}
	itemID, err := id.ParseItemID(rawItemID)
	if err != nil {
		return nil, fmt.Errorf("scan assignment item id: %w", err)
	}
	a.ID = assignmentID
	a.ParticipantID = participantID
	a.CampaignID = campaignID
	a.ItemID = itemID
	a.Status = models.AssignmentStatus(status)
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

func scanJudgement(row rowScanner) (*models.Judgement, error) {
	var j models.Judgement
	var rawID, rawAssignmentID, rawParticipantID, rawCampaignID, rawItemID string
	err := row.Scan(
		&rawID, &rawAssignmentID, &rawParticipantID, &rawCampaignID,
		&rawItemID, &j.Rating, &j.Justification, &j.Notes, &j.SecondsSpent,
		&j.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan judgement: %w", err)
	}
	judgementID, err := id.ParseJudgementID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan judgement id: %w", err)
	}
	assignmentID, err := id.ParseAssignmentID(rawAssignmentID)
	if err != nil {
		return nil, fmt.Errorf("scan judgement assignment id: %w", err)
	}
	participantID, err := id.ParseParticipantID(rawParticipantID)
	if err != nil {
		return nil, fmt.Errorf("scan judgement participant id: %w", err)
	}
	campaignID, err := id.ParseCampaignID(rawCampaignID)
	if err != nil {
		return nil, fmt.Errorf("scan judgement campaign id: %w", err)
	}
	itemID, err := id.ParseItemID(rawItemID)
	if err != nil {
		return nil, fmt.Errorf("scan judgement item id: %w", err)
	}
	j.ID = judgementID
	j.AssignmentID = assignmentID
	j.ParticipantID = participantID
	j.CampaignID = campaignID
	j.ItemID = itemID
	return &j, nil
}
