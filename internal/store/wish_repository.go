package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/wishchain/wishchain-backend/internal/domain"
)

const wishColumns = `id, title, description, user_id, status, created_at, updated_at`

// CreateWish inserts a pending wish and fills in its generated fields.
func (r *PostgresRepository) CreateWish(ctx context.Context, wish *domain.Wish) error {
	if wish.Status == "" {
		wish.Status = domain.WishPending
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO wishes (title, description, user_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, wish.Title, wish.Description, wish.UserID, string(wish.Status)).Scan(&wish.ID, &wish.CreatedAt, &wish.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert wish: %w", err)
	}
	return nil
}

// FindWishByID returns a single wish or ErrWishNotFound.
func (r *PostgresRepository) FindWishByID(ctx context.Context, wishID uuid.UUID) (*domain.Wish, error) {
	var (
		w      domain.Wish
		status string
	)
	err := r.db.QueryRow(ctx, `SELECT `+wishColumns+` FROM wishes WHERE id = $1`, wishID).
		Scan(&w.ID, &w.Title, &w.Description, &w.UserID, &status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWishNotFound
		}
		return nil, err
	}
	w.Status = domain.WishStatus(status)
	return &w, nil
}

// ListWishes returns every wish, newest first.
func (r *PostgresRepository) ListWishes(ctx context.Context) ([]domain.Wish, error) {
	return r.queryWishes(ctx, `SELECT `+wishColumns+` FROM wishes ORDER BY created_at DESC, id`)
}

// ListWishesByOwner returns the wishes of one wisher, newest first.
func (r *PostgresRepository) ListWishesByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Wish, error) {
	return r.queryWishes(ctx,
		`SELECT `+wishColumns+` FROM wishes WHERE user_id = $1 ORDER BY created_at DESC, id`,
		ownerID,
	)
}

func (r *PostgresRepository) queryWishes(ctx context.Context, query string, args ...interface{}) ([]domain.Wish, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wishes := []domain.Wish{}
	for rows.Next() {
		var (
			w      domain.Wish
			status string
		)
		if err := rows.Scan(&w.ID, &w.Title, &w.Description, &w.UserID, &status, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		w.Status = domain.WishStatus(status)
		wishes = append(wishes, w)
	}
	return wishes, rows.Err()
}

// ExpirePendingWishes marks pending wishes created before cutoff as expired.
// Only rows still pending are touched, so a concurrent grant either wins the
// row lock first or sees the expired status.
func (r *PostgresRepository) ExpirePendingWishes(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE wishes
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
