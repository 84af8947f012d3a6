// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/doula/internal/postgres"
	"github.com/linnemanlabs/doula/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/doula/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists mother and CHW records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, applies the schema, and returns a ready Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const motherColumns = `id, name, phone, days_postpartum, bleeding, temp_c,
	headache, vision_blur, baby_feeding, priority, lat, lng`

// GetMother retrieves a mother record by ID.
func (s *Store) GetMother(ctx context.Context, id string) (*triage.Mother, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetMother", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + motherColumns + ` FROM mothers WHERE id = $1`
	m, err := scanMother(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if m == nil {
		return nil, false, nil
	}
	return m, true, nil
}

// ListMothers returns all mother records ordered by ID.
func (s *Store) ListMothers(ctx context.Context) ([]*triage.Mother, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ListMothers", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + motherColumns + ` FROM mothers ORDER BY id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query mothers: %w", err)
	}
	defer rows.Close()

	var out []*triage.Mother
	for rows.Next() {
		m, err := scanMother(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scan mothers: %w", err)
	}
	return out, nil
}

// PutMother inserts or updates a mother record.
func (s *Store) PutMother(ctx context.Context, m *triage.Mother) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutMother", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	query := `
		INSERT INTO mothers (id, name, phone, days_postpartum, bleeding, temp_c,
			headache, vision_blur, baby_feeding, priority, lat, lng, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			days_postpartum = EXCLUDED.days_postpartum,
			bleeding = EXCLUDED.bleeding,
			temp_c = EXCLUDED.temp_c,
			headache = EXCLUDED.headache,
			vision_blur = EXCLUDED.vision_blur,
			baby_feeding = EXCLUDED.baby_feeding,
			priority = EXCLUDED.priority,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			updated_at = now()`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Name, m.Phone, m.DaysPostpartum, m.Bleeding, m.TempC,
		m.Headache, m.VisionBlur, m.BabyFeeding, m.Priority, m.Lat, m.Lng,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert mother: %w", err)
	}
	return nil
}

const chwColumns = `id, name, base_lat, base_lng, max_visits_day`

// GetCHW retrieves a CHW record by ID.
func (s *Store) GetCHW(ctx context.Context, id string) (*triage.CHW, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetCHW", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + chwColumns + ` FROM chws WHERE id = $1`
	c, err := scanCHW(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if c == nil {
		return nil, false, nil
	}
	return c, true, nil
}

// ListCHWs returns all CHW records ordered by ID.
func (s *Store) ListCHWs(ctx context.Context) ([]*triage.CHW, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ListCHWs", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + chwColumns + ` FROM chws ORDER BY id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query chws: %w", err)
	}
	defer rows.Close()

	var out []*triage.CHW
	for rows.Next() {
		c, err := scanCHW(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scan chws: %w", err)
	}
	return out, nil
}

// PutCHW inserts or updates a CHW record.
func (s *Store) PutCHW(ctx context.Context, c *triage.CHW) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutCHW", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	query := `
		INSERT INTO chws (id, name, base_lat, base_lng, max_visits_day, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			base_lat = EXCLUDED.base_lat,
			base_lng = EXCLUDED.base_lng,
			max_visits_day = EXCLUDED.max_visits_day,
			updated_at = now()`

	_, err := s.pool.Exec(ctx, query, c.ID, c.Name, c.BaseLat, c.BaseLng, c.MaxVisitsDay)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert chw: %w", err)
	}
	return nil
}

func scanMother(row pgx.Row) (*triage.Mother, error) {
	var m triage.Mother
	err := row.Scan(
		&m.ID, &m.Name, &m.Phone, &m.DaysPostpartum, &m.Bleeding, &m.TempC,
		&m.Headache, &m.VisionBlur, &m.BabyFeeding, &m.Priority, &m.Lat, &m.Lng,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan mother: %w", err)
	}
	return &m, nil
}

func scanCHW(row pgx.Row) (*triage.CHW, error) {
	var c triage.CHW
	err := row.Scan(&c.ID, &c.Name, &c.BaseLat, &c.BaseLng, &c.MaxVisitsDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chw: %w", err)
	}
	return &c, nil
}
