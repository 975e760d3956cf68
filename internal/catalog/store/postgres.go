package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"quorum/internal/catalog/models"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/sentinel"
	"quorum/pkg/platform/tx"
)

// Postgres persists catalog items in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Postgres) Create(ctx context.Context, item *models.Item) error {
	q := tx.QuerierFrom(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO items (id, label, batch, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID.String(), item.Label, item.Batch, string(item.Status), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, itemID id.ItemID) (*models.Item, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, label, batch, status, created_at, updated_at
		FROM items WHERE id = $1`,
		itemID.String(),
	)
	return scanItem(row)
}

func (s *Postgres) ListBatch(ctx context.Context, batch string, onlyActive bool) ([]*models.Item, error) {
	q := tx.QuerierFrom(ctx, s.db)
	query := `
		SELECT id, label, batch, status, created_at, updated_at
		FROM items WHERE batch = $1`
	if onlyActive {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, batch)
	if err != nil {
		return nil, fmt.Errorf("list batch: %w", err)
	}
	defer rows.Close()

	var out []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Execute locks the item row with FOR UPDATE for the validate-then-mutate
// sequence, mirroring the in-memory store's mutex semantics. When a
// transaction already travels through context the mutation joins it, so a
// caller can commit the status flip together with its side effects.
func (s *Postgres) Execute(ctx context.Context, itemID id.ItemID, validate func(*models.Item) error, mutate func(*models.Item)) (*models.Item, error) {
	if ambient, ok := tx.From(ctx); ok {
		return s.executeIn(ctx, ambient, itemID, validate, mutate)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin item tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	item, err := s.executeIn(ctx, dbTx, itemID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit item tx: %w", err)
	}
	return item, nil
}

func (s *Postgres) executeIn(ctx context.Context, q tx.Querier, itemID id.ItemID, validate func(*models.Item) error, mutate func(*models.Item)) (*models.Item, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, label, batch, status, created_at, updated_at
		FROM items WHERE id = $1 FOR UPDATE`,
		itemID.String(),
	)
	item, err := scanItem(row)
	if err != nil {
		return nil, err
	}
	if err := validate(item); err != nil {
		return nil, err
	}
	mutate(item)

	_, err = q.ExecContext(ctx, `
		UPDATE items SET label = $2, batch = $3, status = $4, updated_at = $5
		WHERE id = $1`,
		item.ID.String(), item.Label, item.Batch, string(item.Status), item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var rawID, status string
	err := row.Scan(&rawID, &item.Label, &item.Batch, &status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	itemID, err := id.ParseItemID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan item id: %w", err)
	}
	item.ID = itemID
	item.Status = models.ItemStatus(status)
	return &item, nil
}
