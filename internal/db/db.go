package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrRouteNotFound is returned by FetchRoute for an unknown route_id.
var ErrRouteNotFound = errors.New("db: route not found")

// RouteRecord is one row of the routes table: a stored directions response.
type RouteRecord struct {
	RouteID   string
	Response  []byte
	UpdatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS routes (
  route_id   text PRIMARY KEY,
  response   jsonb NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now()
)`

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// EnsureSchema creates the routes table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create routes table: %w", err)
	}
	return nil
}

// FetchRoutes returns every stored route ordered by route_id.
func FetchRoutes(ctx context.Context, db *sql.DB) ([]RouteRecord, error) {
	q := `SELECT route_id, response::text, updated_at FROM routes ORDER BY route_id`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var out []RouteRecord
	for rows.Next() {
		var r RouteRecord
		var resp string
		if err := rows.Scan(&r.RouteID, &resp, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Response = []byte(resp)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchRoute returns a single stored route.
func FetchRoute(ctx context.Context, db *sql.DB, routeID string) (RouteRecord, error) {
	q := `SELECT route_id, response::text, updated_at FROM routes WHERE route_id = $1`
	var r RouteRecord
	var resp string
	if err := db.QueryRowContext(ctx, q, routeID).Scan(&r.RouteID, &resp, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RouteRecord{}, fmt.Errorf("%w: %q", ErrRouteNotFound, routeID)
		}
		return RouteRecord{}, fmt.Errorf("query route %q: %w", routeID, err)
	}
	r.Response = []byte(resp)
	return r, nil
}

// Store adapts a pool to the API's route store.
type Store struct {
	DB *sql.DB
}

func (s Store) SaveRoute(ctx context.Context, routeID string, response []byte) error {
	return SaveRoute(ctx, s.DB, routeID, response)
}

// SaveRoute inserts or replaces a stored directions response.
func SaveRoute(ctx context.Context, db *sql.DB, routeID string, response []byte) error {
	q := `
INSERT INTO routes (route_id, response, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (route_id) DO UPDATE SET response = EXCLUDED.response, updated_at = EXCLUDED.updated_at`
	if _, err := db.ExecContext(ctx, q, routeID, string(response)); err != nil {
		return fmt.Errorf("save route %q: %w", routeID, err)
	}
	return nil
}
