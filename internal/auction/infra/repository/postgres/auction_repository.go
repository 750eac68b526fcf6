package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/maverick16108/atlas/internal/shared/db"
	"github.com/shopspring/decimal"
)

const auctionColumns = `id, title, description, status, start_at, end_at, gpb_started_at,
        gpb_minutes, bar_count, bar_weight::text, min_price::text, invite_all, created_at, updated_at`

// AuctionRepository implements domain.AuctionRepository interface
type AuctionRepository struct {
	pool *pgxpool.Pool
}

// NewAuctionRepository creates a new instance of AuctionRepository
func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

// Create inserts a new auction. Timestamps come from the aggregate, not from the DB defaults.
func (r *AuctionRepository) Create(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, title, description, status, start_at, end_at, gpb_started_at,
            gpb_minutes, bar_count, bar_weight, min_price, invite_all, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11::numeric, $12, $13, $14)
    `
	var minPrice *string
	if auction.MinPrice.Valid {
		s := auction.MinPrice.Decimal.String()
		minPrice = &s
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, query,
		auction.ID,
		auction.Title,
		auction.Description,
		string(auction.Status),
		auction.StartAt,
		auction.EndAt,
		auction.GPBStartedAt,
		auction.GPBMinutes,
		auction.BarCount,
		auction.BarWeight.String(),
		minPrice,
		auction.InviteAll,
		auction.CreatedAt,
		auction.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert auction %s: %w", auction.ID, err)
	}
	return nil
}

// GetByID loads an auction, without locking it.
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate loads an auction and holds its row lock until the
// surrounding transaction ends. Outside a transaction the lock is released
// immediately, so callers must go through a Transactor.
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *AuctionRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*domain.Auction, error) {
	auction, err := scanAuction(db.Conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("get auction %s: %w", id, err)
	}
	return auction, nil
}

// ListByStatus returns every auction currently in status.
func (r *AuctionRepository) ListByStatus(ctx context.Context, status domain.AuctionStatus) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, string(status))
}

// ListStartingBetween returns auctions in one of statuses whose start_at lies in [from, to].
func (r *AuctionRepository) ListStartingBetween(ctx context.Context, statuses []domain.AuctionStatus, from, to time.Time) ([]*domain.Auction, error) {
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}
	query := `SELECT ` + auctionColumns + `
        FROM auctions
        WHERE status = ANY($1) AND start_at BETWEEN $2 AND $3
        ORDER BY start_at ASC, id ASC`
	return r.list(ctx, query, raw, from, to)
}

func (r *AuctionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Auction, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return auctions, nil
}

// CompareAndSetStatus is the single write path for auction status. The WHERE
// clause on the previous status makes concurrent writers race on the row:
// exactly one of them sees RowsAffected == 1.
func (r *AuctionRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.AuctionStatus, patch domain.StatusPatch) (bool, error) {
	query := `
        UPDATE auctions
        SET status = $3,
            gpb_started_at = COALESCE($4, gpb_started_at),
            updated_at = COALESCE($5, NOW())
        WHERE id = $1 AND status = $2
    `
	var updatedAt *time.Time
	if !patch.UpdatedAt.IsZero() {
		updatedAt = &patch.UpdatedAt
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, id, string(from), string(to), patch.GPBStartedAt, updatedAt)
	if err != nil {
		return false, fmt.Errorf("cas auction %s %s -> %s: %w", id, from, to, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	auction := &domain.Auction{}
	var (
		status    string
		barWeight string
		minPrice  *string
	)
	err := row.Scan(
		&auction.ID,
		&auction.Title,
		&auction.Description,
		&status,
		&auction.StartAt,
		&auction.EndAt,
		&auction.GPBStartedAt,
		&auction.GPBMinutes,
		&auction.BarCount,
		&barWeight,
		&minPrice,
		&auction.InviteAll,
		&auction.CreatedAt,
		&auction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if auction.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	if auction.BarWeight, err = decimal.NewFromString(barWeight); err != nil {
		return nil, fmt.Errorf("bar_weight: %w", err)
	}
	if minPrice != nil {
		price, err := decimal.NewFromString(*minPrice)
		if err != nil {
			return nil, fmt.Errorf("min_price: %w", err)
		}
		auction.MinPrice = decimal.NewNullDecimal(price)
	}
	return auction, nil
}
