package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	revenueSQL = `SELECT COALESCE(SUM(total), 0), COUNT(*) FROM orders
		WHERE payment_status = 'paid' AND created_at >= $1`

	ordersByStatusSQL = `SELECT status, COUNT(*) FROM orders
		WHERE created_at >= $1 GROUP BY status`

	topProductsSQL = `SELECT item->>'productId', item->>'name',
		COALESCE(item->>'image', ''),
		SUM((item->>'quantity')::int),
		SUM((item->>'price')::numeric * (item->>'quantity')::int)
		FROM orders, jsonb_array_elements(items) AS item
		WHERE payment_status = 'paid' AND created_at >= $1
		GROUP BY 1, 2, 3
		ORDER BY 4 DESC
		LIMIT 10`

	revenueByDaySQL = `SELECT to_char(created_at, 'YYYY-MM-DD') AS day,
		SUM(total), COUNT(*)
		FROM orders
		WHERE payment_status = 'paid' AND created_at >= $1
		GROUP BY day ORDER BY day`

	userCountsSQL = `SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1) FROM users`

	productCountsSQL = `SELECT COUNT(*), COUNT(*) FILTER (WHERE stock < 10)
		FROM products WHERE active`
)

// Revenue summarizes paid orders within the stats period.
type Revenue struct {
	Total   decimal.Decimal `json:"total"`
	Orders  int             `json:"orders"`
	Average decimal.Decimal `json:"average"`
}

// StatusCount is one order-status bucket.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// TopProduct is one entry in the best-sellers ranking.
type TopProduct struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	TotalSold int             `json:"totalSold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// DayRevenue is paid revenue aggregated for one calendar day.
type DayRevenue struct {
	Day     string          `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// UserCounts summarizes the user base for the dashboard.
type UserCounts struct {
	Total int `json:"total"`
	New   int `json:"new"`
}

// ProductCounts summarizes the active catalog for the dashboard.
type ProductCounts struct {
	Total    int `json:"total"`
	LowStock int `json:"lowStock"`
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	Revenue        Revenue       `json:"revenue"`
	OrdersByStatus []StatusCount `json:"ordersByStatus"`
	TopProducts    []TopProduct  `json:"topProducts"`
	RevenueByDay   []DayRevenue  `json:"revenueByDay"`
	Users          UserCounts    `json:"users"`
	Products       ProductCounts `json:"products"`
}

// StatsRepository runs the admin dashboard aggregations.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a StatsRepository that uses the given pool.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// Fetch computes all dashboard aggregates for orders created at or after
// since. The six underlying queries are independent, so they run
// concurrently on separate pool connections.
func (r *StatsRepository) Fetch(ctx context.Context, since time.Time) (*Stats, error) {
	var stats Stats

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := r.pool.QueryRow(ctx, revenueSQL, since).Scan(&stats.Revenue.Total, &stats.Revenue.Orders)
		if err != nil {
			return fmt.Errorf("revenue: %w", err)
		}
		if stats.Revenue.Orders > 0 {
			stats.Revenue.Average = stats.Revenue.Total.
				Div(decimal.NewFromInt(int64(stats.Revenue.Orders))).Round(2)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := r.pool.Query(ctx, ordersByStatusSQL, since)
		if err != nil {
			return fmt.Errorf("orders by status: %w", err)
		}
		stats.OrdersByStatus, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (StatusCount, error) {
			var sc StatusCount
			err := row.Scan(&sc.Status, &sc.Count)
			return sc, err
		})
		if err != nil {
			return fmt.Errorf("orders by status: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := r.pool.Query(ctx, topProductsSQL, since)
		if err != nil {
			return fmt.Errorf("top products: %w", err)
		}
		stats.TopProducts, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopProduct, error) {
			var tp TopProduct
			err := row.Scan(&tp.ProductID, &tp.Name, &tp.Image, &tp.TotalSold, &tp.Revenue)
			return tp, err
		})
		if err != nil {
			return fmt.Errorf("top products: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := r.pool.Query(ctx, revenueByDaySQL, since)
		if err != nil {
			return fmt.Errorf("revenue by day: %w", err)
		}
		stats.RevenueByDay, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (DayRevenue, error) {
			var dr DayRevenue
			err := row.Scan(&dr.Day, &dr.Revenue, &dr.Orders)
			return dr, err
		})
		if err != nil {
			return fmt.Errorf("revenue by day: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.pool.QueryRow(ctx, userCountsSQL, since).Scan(&stats.Users.Total, &stats.Users.New)
		if err != nil {
			return fmt.Errorf("user counts: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.pool.QueryRow(ctx, productCountsSQL).Scan(&stats.Products.Total, &stats.Products.LowStock)
		if err != nil {
			return fmt.Errorf("product counts: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}
