package seeds

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func Setup(ctx context.Context, pool *pgxpool.Pool) error {
	rng := rand.New(rand.NewSource(42))

	// Truncate existing data before insert
	log.Println("[seed] truncating existing data")
	if _, err := pool.Exec(ctx, `TRUNCATE listings`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	log.Println("[seed] inserting listings")
	if err := seedListings(ctx, pool, rng, 60); err != nil {
		return fmt.Errorf("seed listings: %w", err)
	}

	log.Println("[seed] seeding complete")
	return nil
}

func seedListings(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, n int) error {
	cities := []string{"Springfield", "Shelbyville", "Capital City", "Ogdenville", "North Haverbrook"}
	streets := []string{"Maple St", "Oak Ave", "Evergreen Terrace", "Elm St", "Main St", "Birch Rd"}
	titleStyles := []string{"Cozy", "Modern", "Spacious", "Charming", "Renovated", "Sunny"}
	titleKinds := []string{"Apartment", "Loft", "Townhouse", "Family Home", "Studio", "Condo"}

	rows := []string{}
	args := []any{}

	for i := 0; i < n; i++ {
		city := cities[rng.Intn(len(cities))]
		street := streets[rng.Intn(len(streets))]
		bedrooms := rng.Intn(4) + 1
		bathrooms := rng.Intn(bedrooms) + 1
		area := float64(bedrooms*350 + rng.Intn(600))

		isRent := rng.Float64() < 0.5
		listingType := "sale"
		price := float64(150000 + bedrooms*60000 + rng.Intn(200000))
		if isRent {
			listingType = "rent"
			price = float64(800 + bedrooms*400 + rng.Intn(1200))
		}

		// Roughly a quarter of listings carry a discount.
		discount := 0.0
		if rng.Float64() < 0.25 {
			discount = price * (0.8 + rng.Float64()*0.15)
		}

		title := fmt.Sprintf("%s %d-Bedroom %s in %s",
			titleStyles[rng.Intn(len(titleStyles))], bedrooms,
			titleKinds[rng.Intn(len(titleKinds))], city)
		address := fmt.Sprintf("%d %s, %s, ST", rng.Intn(200)+1, street, city)
		createdAt := time.Now().AddDate(0, 0, -rng.Intn(365))

		base := i * 11
		placeholders := make([]string, 11)
		for p := range placeholders {
			placeholders[p] = fmt.Sprintf("$%d", base+p+1)
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")

		args = append(args, uuid.NewString(), title, price, discount, bedrooms, bathrooms,
			area, address, city, listingType, createdAt)
	}

	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO listings (id, title, price, discount_price, bedrooms, bathrooms,
		area_sqft, address, city, type, created_at) VALUES ` + strings.Join(rows, ", ")

	_, err := pool.Exec(ctx, query, args...)
	return err
}
