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

// OfferRepository implements domain.OfferRepository interface
type OfferRepository struct {
	pool *pgxpool.Pool
}

func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

func (r *OfferRepository) Save(ctx context.Context, offer *domain.InitialOffer) error {
	query := `
        INSERT INTO initial_offers (id, auction_id, user_id, volume, price, comment, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)
    `
	_, err := db.Conn(ctx, r.pool).Exec(ctx, query,
		offer.ID,
		offer.AuctionID,
		offer.BidderID,
		offer.Volume.String(),
		offer.Price.String(),
		offer.Comment,
		offer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert offer %s: %w", offer.ID, err)
	}
	return nil
}

// GetOffersByAuctionID lists offers newest first.
func (r *OfferRepository) GetOffersByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.InitialOffer, error) {
	query := `
        SELECT id, auction_id, user_id, volume::text, price::text, comment, created_at
        FROM initial_offers
        WHERE auction_id = $1
        ORDER BY created_at DESC, id ASC
    `
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list offers of auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var offers []*domain.InitialOffer
	for rows.Next() {
		offer := &domain.InitialOffer{}
		var volume, price string
		if err := rows.Scan(&offer.ID, &offer.AuctionID, &offer.BidderID, &volume, &price, &offer.Comment, &offer.CreatedAt); err != nil {
			return nil, err
		}
		if offer.Volume, err = decimal.NewFromString(volume); err != nil {
			return nil, fmt.Errorf("offer %s volume: %w", offer.ID, err)
		}
		if offer.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("offer %s price: %w", offer.ID, err)
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}
