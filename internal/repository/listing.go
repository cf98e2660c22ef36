package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/proplens/property-recommendation-service/internal/domain"
)

const listingColumns = `id, title, price, discount_price, bedrooms, bathrooms,
	area_sqft, address, city, type, created_at`

// GetListings returns the full catalog snapshot, newest first.
func (r *Repository) GetListings(ctx context.Context) ([]domain.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+listingColumns+`
		FROM listings
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

func (r *Repository) GetListingByID(ctx context.Context, id string) (*domain.Listing, error) {
	l := &domain.Listing{}

	err := r.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id,
	).Scan(&l.ID, &l.Title, &l.Price, &l.DiscountPrice, &l.Bedrooms, &l.Bathrooms,
		&l.AreaSqFt, &l.Address, &l.City, &l.Type, &l.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("query listing id=%s: %w", id, err)
	}

	return l, nil
}

func (r *Repository) CreateListing(ctx context.Context, l *domain.Listing) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO listings (id, title, price, discount_price, bedrooms, bathrooms,
			area_sqft, address, city, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.ID, l.Title, l.Price, l.DiscountPrice, l.Bedrooms, l.Bathrooms,
		l.AreaSqFt, l.Address, l.City, l.Type, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing id=%s: %w", l.ID, err)
	}
	return nil
}

// TrainableListings returns the listings eligible for price model training.
func (r *Repository) TrainableListings(ctx context.Context) ([]domain.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+listingColumns+`
		FROM listings
		WHERE price > 0 AND bedrooms > 0 AND bathrooms > 0
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query trainable listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

func (r *Repository) CountTrainable(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM listings WHERE price > 0 AND bedrooms > 0 AND bathrooms > 0`,
	).Scan(&total)

	if err != nil {
		return 0, fmt.Errorf("count trainable listings: %w", err)
	}
	return total, nil
}

func (r *Repository) CountListings(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return total, nil
}

func scanListings(rows pgx.Rows) ([]domain.Listing, error) {
	var items []domain.Listing
	for rows.Next() {
		var l domain.Listing
		err := rows.Scan(&l.ID, &l.Title, &l.Price, &l.DiscountPrice, &l.Bedrooms, &l.Bathrooms,
			&l.AreaSqFt, &l.Address, &l.City, &l.Type, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		items = append(items, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over listings: %w", err)
	}
	return items, nil
}
