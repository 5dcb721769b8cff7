package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the store uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps records in the games table.
type PostgresStore struct {
	db Querier
}

func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	if err := Validate(rec); err != nil {
		return err
	}
	rec = normalize(rec)
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now().UTC()
	}

	objects, err := json.Marshal(rec.Objects)
	if err != nil {
		return fmt.Errorf("marshal objects: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO games (name, objects, generated_code, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET objects = EXCLUDED.objects,
		    generated_code = EXCLUDED.generated_code,
		    saved_at = EXCLUDED.saved_at`,
		rec.Name, objects, rec.GeneratedCode, rec.SavedAt)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, `SELECT name, objects, generated_code, saved_at FROM games ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list games: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) (Record, error) {
	row := s.db.QueryRow(ctx, `SELECT name, objects, generated_code, saved_at FROM games WHERE name = $1`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get game: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var objects []byte
	if err := row.Scan(&rec.Name, &objects, &rec.GeneratedCode, &rec.SavedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(objects, &rec.Objects); err != nil {
		return Record{}, fmt.Errorf("decode objects of %s: %w", rec.Name, err)
	}
	return normalize(rec), nil
}
