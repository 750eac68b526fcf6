package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maverick16108/atlas/internal/shared/db"
)

// ParticipantRepository implements domain.ParticipantRepository interface
type ParticipantRepository struct {
	pool *pgxpool.Pool
}

func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{pool: pool}
}

func (r *ParticipantRepository) IsParticipant(ctx context.Context, auctionID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM auction_participants WHERE auction_id = $1 AND user_id = $2)`
	var ok bool
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, auctionID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check participant %s of auction %s: %w", userID, auctionID, err)
	}
	return ok, nil
}

func (r *ParticipantRepository) HasParticipants(ctx context.Context, auctionID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM auction_participants WHERE auction_id = $1)`
	var ok bool
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, query, auctionID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check participants of auction %s: %w", auctionID, err)
	}
	return ok, nil
}

// SetParticipants replaces the invited list. An empty list opens the auction to everyone.
// Callers should run it inside a transaction so the delete and insert land together.
func (r *ParticipantRepository) SetParticipants(ctx context.Context, auctionID uuid.UUID, userIDs []uuid.UUID) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM auction_participants WHERE auction_id = $1`, auctionID); err != nil {
		return fmt.Errorf("clear participants of auction %s: %w", auctionID, err)
	}
	if len(userIDs) == 0 {
		return nil
	}
	query := `
        INSERT INTO auction_participants (auction_id, user_id)
        SELECT $1, unnest($2::uuid[])
        ON CONFLICT DO NOTHING
    `
	if _, err := conn.Exec(ctx, query, auctionID, userIDs); err != nil {
		return fmt.Errorf("insert participants of auction %s: %w", auctionID, err)
	}
	return nil
}
