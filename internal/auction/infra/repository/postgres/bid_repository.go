package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/maverick16108/atlas/internal/shared/db"
	"github.com/shopspring/decimal"
)

// BidRepository implements domain.BidRepository interface
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates new instance of BidRepository.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// Save only inserts, bids are append-only. It joins the caller's transaction when ctx carries one.
func (r *BidRepository) Save(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, user_id, amount, bar_count, is_gpb, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
    `
	_, err := db.Conn(ctx, r.pool).Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.BidderID,
		bid.Amount.String(),
		bid.BarCount,
		bid.IsGPB,
		bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bid %s: %w", bid.ID, err)
	}
	return nil
}

// GetBidsByAuctionID returns all bids of an auction in priority order.
func (r *BidRepository) GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, user_id, amount::text, bar_count, is_gpb, created_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY amount DESC, created_at ASC, id ASC
    `
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids of auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid := &domain.Bid{}
		var amount string
		err := rows.Scan(
			&bid.ID,
			&bid.AuctionID,
			&bid.BidderID,
			&amount,
			&bid.BarCount,
			&bid.IsGPB,
			&bid.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if bid.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bid %s amount: %w", bid.ID, err)
		}
		bids = append(bids, bid)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bids, nil
}
