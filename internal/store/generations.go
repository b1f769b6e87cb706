package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Generation statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// MaxRating is the highest rating a generation accepts.
const MaxRating = 5

// ErrInvalidRating is returned for ratings outside 0..MaxRating.
var ErrInvalidRating = errors.New("rating must be between 0 and 5")

// Generation is one try-on history record.
type Generation struct {
	ID               string    `json:"id"`
	PersonName       string    `json:"person_name,omitempty"`
	PersonImagePath  string    `json:"person_image_path,omitempty"`
	GarmentName      string    `json:"garment_name,omitempty"`
	GarmentImagePath string    `json:"garment_image_path,omitempty"`
	ResultImagePath  string    `json:"result_image_path,omitempty"`
	Variant          string    `json:"generation_type"`
	Backend          string    `json:"backend,omitempty"`
	Prompt           string    `json:"prompt,omitempty"`
	Seconds          float64   `json:"generation_time"`
	Rating           *int      `json:"rating,omitempty"`
	Cost             float64   `json:"cost"`
	Status           string    `json:"status"`
	Error            string    `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateGeneration inserts g in the processing state. CreatedAt defaults to now.
func (d *DB) CreateGeneration(ctx context.Context, g Generation) error {
	if g.ID == "" {
		return errors.New("generation id is required")
	}
	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	_, err := d.db.ExecContext(ctx, `INSERT INTO generations (id, person_name, person_image_path, garment_name,
		garment_image_path, generation_type, prompt, cost, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.PersonName, g.PersonImagePath, g.GarmentName, g.GarmentImagePath, g.Variant, g.Prompt, g.Cost,
		StatusProcessing, g.CreatedAt.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// CompleteGeneration marks id completed with its result.
func (d *DB) CompleteGeneration(ctx context.Context, id, resultPath, backend, prompt string, seconds float64) error {
	return d.exec1(ctx, `UPDATE generations SET status = ?, result_image_path = ?, backend = ?, prompt = ?,
		generation_time = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted, resultPath, backend, prompt, seconds, time.Now().UnixMilli(), id)
}

// FailGeneration marks id failed.
func (d *DB) FailGeneration(ctx context.Context, id, message string, seconds float64) error {
	return d.exec1(ctx, `UPDATE generations SET status = ?, error_message = ?, generation_time = ?, updated_at = ?
		WHERE id = ?`, StatusFailed, message, seconds, time.Now().UnixMilli(), id)
}

// RateGeneration stores a 0..5 rating.
func (d *DB) RateGeneration(ctx context.Context, id string, rating int) error {
	if rating < 0 || rating > MaxRating {
		return ErrInvalidRating
	}
	return d.exec1(ctx, `UPDATE generations SET rating = ?, updated_at = ? WHERE id = ?`,
		rating, time.Now().UnixMilli(), id)
}

// DeleteGeneration removes the record.
func (d *DB) DeleteGeneration(ctx context.Context, id string) error {
	return d.exec1(ctx, `DELETE FROM generations WHERE id = ?`, id)
}

const generationColumns = `id, person_name, person_image_path, garment_name, garment_image_path, result_image_path,
	generation_type, backend, prompt, generation_time, rating, cost, status, error_message, created_at, updated_at`

// GetGeneration returns one record or ErrNotFound.
func (d *DB) GetGeneration(ctx context.Context, id string) (Generation, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+generationColumns+` FROM generations WHERE id = ?`, id)
	g, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Generation{}, fmt.Errorf("%w: generation %s", ErrNotFound, id)
	}
	return g, err
}

// ListGenerations returns up to limit records, newest first. limit <= 0
// means no limit.
func (d *DB) ListGenerations(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.QueryContext(ctx, `SELECT `+generationColumns+` FROM generations
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()
	out := []Generation{}
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGeneration(s scanner) (Generation, error) {
	var (
		g                Generation
		rating           sql.NullInt64
		created, updated int64
	)
	err := s.Scan(&g.ID, &g.PersonName, &g.PersonImagePath, &g.GarmentName, &g.GarmentImagePath, &g.ResultImagePath,
		&g.Variant, &g.Backend, &g.Prompt, &g.Seconds, &rating, &g.Cost, &g.Status, &g.Error, &created, &updated)
	if err != nil {
		return Generation{}, err
	}
	if rating.Valid {
		r := int(rating.Int64)
		g.Rating = &r
	}
	g.CreatedAt = time.UnixMilli(created)
	g.UpdatedAt = time.UnixMilli(updated)
	return g, nil
}

// exec1 runs a statement that must touch exactly one row.
func (d *DB) exec1(ctx context.Context, query string, args ...any) error {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
