package store

import (
	"context"
	"fmt"
	"time"

	"fitroom/internal/variant"
)

// ListVariants implements variant.Store.
func (d *DB) ListVariants(ctx context.Context) ([]variant.Variant, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name, display_name, is_paid, cost_per_generation, enabled,
		avg_generation_time, max_generation_time, blacklisted, blacklist_reason, updated_at
		FROM generation_variants ORDER BY is_paid, cost_per_generation, name`)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()
	var out []variant.Variant
	for rows.Next() {
		var (
			v                          variant.Variant
			paid, enabled, blacklisted int
			updated                    int64
		)
		if err := rows.Scan(&v.Name, &v.DisplayName, &paid, &v.Cost, &enabled,
			&v.AvgSeconds, &v.MaxSeconds, &blacklisted, &v.BlacklistReason, &updated); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		v.Paid, v.Enabled, v.Blacklisted = paid != 0, enabled != 0, blacklisted != 0
		v.UpdatedAt = time.UnixMilli(updated)
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpsertVariant implements variant.Store.
func (d *DB) UpsertVariant(ctx context.Context, v variant.Variant) error {
	updated := v.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `INSERT INTO generation_variants (name, display_name, is_paid,
		cost_per_generation, enabled, avg_generation_time, max_generation_time, blacklisted, blacklist_reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			is_paid = excluded.is_paid,
			cost_per_generation = excluded.cost_per_generation,
			enabled = excluded.enabled,
			avg_generation_time = excluded.avg_generation_time,
			max_generation_time = excluded.max_generation_time,
			blacklisted = excluded.blacklisted,
			blacklist_reason = excluded.blacklist_reason,
			updated_at = excluded.updated_at`,
		v.Name, v.DisplayName, boolInt(v.Paid), v.Cost, boolInt(v.Enabled),
		v.AvgSeconds, v.MaxSeconds, boolInt(v.Blacklisted), v.BlacklistReason, updated.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert variant %s: %w", v.Name, err)
	}
	return nil
}
