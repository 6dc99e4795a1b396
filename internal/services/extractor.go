package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oplens/stockcast/internal/database"
	"github.com/oplens/stockcast/internal/models"
)

// MovementQuerier defines the database operations needed to extract
// demand buckets.
type MovementQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// MovementExtractor turns forecast request filters into a grouped,
// date-truncated aggregate of outbound stock movement quantities. Only
// completed moves of the request's company are considered.
type MovementExtractor struct {
	db MovementQuerier
}

func NewMovementExtractor(db *database.PostgresDB) *MovementExtractor {
	var querier MovementQuerier
	if db != nil {
		querier = db.Pool
	}
	return &MovementExtractor{db: querier}
}

// NewMovementExtractorWithQuerier creates an extractor with a custom
// querier (for tests).
func NewMovementExtractorWithQuerier(db MovementQuerier) *MovementExtractor {
	return &MovementExtractor{db: db}
}

// FetchDemandBuckets runs the grouped aggregate for the request and
// returns one bucket per distinct truncated date present in the movement
// records. The result may have gaps and is sorted by the database only as
// a convenience; the normalizer does not rely on it.
func (e *MovementExtractor) FetchDemandBuckets(ctx context.Context, req models.ForecastRequest) ([]models.RawBucket, error) {
	if e.db == nil {
		return nil, fmt.Errorf("movement database is not available")
	}

	query, args := buildMovementQuery(req)

	rows, err := e.db.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var buckets []models.RawBucket
	for rows.Next() {
		var bucketStart time.Time
		var quantity float64
		if err := rows.Scan(&bucketStart, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan movement bucket: %w", err)
		}
		buckets = append(buckets, models.RawBucket{
			BucketStart: bucketStart,
			Quantity:    quantity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read movement buckets: %w", err)
	}

	return buckets, nil
}

// buildMovementQuery assembles the aggregate statement. Location scoping
// counts moves leaving the scope (destination outside it), so internal
// shuffles inside a location subtree never count as demand.
func buildMovementQuery(req models.ForecastRequest) (string, pgx.NamedArgs) {
	var with []string
	var where strings.Builder

	if req.Scope == models.ScopeLocation {
		if req.IncludeChildren {
			with = append(with, `RECURSIVE child_locs AS (
		SELECT id, location_id
		FROM stock_location
		WHERE (location_id = @location_id OR id = @location_id) AND usage = 'internal'
		UNION
		SELECT stock_location.id, stock_location.location_id
		FROM stock_location
			JOIN child_locs ON stock_location.location_id = child_locs.id
	)`)
			where.WriteString(`
		AND location_id IN (SELECT id FROM child_locs)
		AND location_dest_id NOT IN (SELECT id FROM child_locs)`)
		} else {
			where.WriteString(`
		AND location_id = @location_id`)
		}
	} else {
		with = append(with, `internal_locations AS (
		SELECT id
		FROM stock_location
		WHERE company_id = @company_id AND usage = 'internal'
	)`)
		where.WriteString(`
		AND location_id IN (SELECT id FROM internal_locations)
		AND location_dest_id NOT IN (SELECT id FROM internal_locations)`)
	}

	if req.Target == models.TargetProduct {
		where.WriteString(`
		AND product_id = @product_id`)
	} else {
		with = append(with, `templ_products AS (
		SELECT id
		FROM product_product
		WHERE product_tmpl_id = @template_id
	)`)
		where.WriteString(`
		AND product_id IN (SELECT id FROM templ_products)`)
	}

	if req.DateStart != nil {
		where.WriteString(`
		AND date::date >= @date_start`)
	}
	if req.DateEnd != nil {
		where.WriteString(`
		AND date::date <= @date_end`)
	}

	withClause := ""
	if len(with) > 0 {
		withClause = "WITH " + strings.Join(with, ", ") + "\n"
	}

	query := fmt.Sprintf(`%sSELECT
		DATE_TRUNC(@interval, date) AS date_gr,
		SUM(product_qty)::float8 AS qty
	FROM stock_move
	WHERE state = 'done'
		AND company_id = @company_id%s
	GROUP BY date_gr
	ORDER BY date_gr`, withClause, where.String())

	args := pgx.NamedArgs{
		"interval":    string(req.Interval),
		"company_id":  req.CompanyID,
		"product_id":  req.ProductID,
		"template_id": req.TemplateID,
		"location_id": req.LocationID,
	}
	if req.DateStart != nil {
		args["date_start"] = *req.DateStart
	}
	if req.DateEnd != nil {
		args["date_end"] = *req.DateEnd
	}

	return query, args
}
