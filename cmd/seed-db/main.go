// Command seed-db populates a database with the catalog read slice and a few
// promotion codes for local development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/storage/postgres"
)

type productJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Category string `json:"category"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedPromoCodes(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promo codes")
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, image_url, category_name)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, image_url = EXCLUDED.image_url, category_name = EXCLUDED.category_name`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Image, p.Category); err != nil {
			return errors.Wrapf(err, "upsert product %d", p.ID)
		}
		slog.Info("upserted product", slog.Int64("id", p.ID), slog.String("name", p.Name))
	}

	// Keep the sequence ahead of explicitly assigned ids.
	if _, err := pool.Exec(ctx,
		`SELECT setval('products_id_seq', (SELECT COALESCE(MAX(id), 1) FROM products))`); err != nil {
		return errors.Wrap(err, "advance products sequence")
	}

	return nil
}

const upsertPromoSQL = `
INSERT INTO promocode (code, discount_amount, status, end_date)
VALUES ($1, $2, $3, $4)
ON CONFLICT (code) DO UPDATE
SET discount_amount = EXCLUDED.discount_amount,
    status          = EXCLUDED.status,
    end_date        = EXCLUDED.end_date`

func seedPromoCodes(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding promo codes")

	nextMonth := time.Now().AddDate(0, 1, 0)
	codes := []struct {
		code    string
		percent decimal.Decimal
		status  string
		endDate *time.Time
	}{
		{code: "WELCOME10", percent: decimal.NewFromInt(10), status: "active", endDate: nil},
		{code: "SUMMER25", percent: decimal.NewFromInt(25), status: "active", endDate: &nextMonth},
		{code: "VIP50", percent: decimal.NewFromInt(50), status: "inactive", endDate: nil},
	}

	for _, c := range codes {
		if _, err := pool.Exec(ctx, upsertPromoSQL, c.code, c.percent, c.status, c.endDate); err != nil {
			return errors.Wrapf(err, "upsert promo code %s", c.code)
		}
		slog.Info("upserted promo code",
			slog.String("code", c.code),
			slog.String("discount", c.percent.StringFixed(2)+"%"),
		)
	}

	return nil
}
