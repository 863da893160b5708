package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/repository"
)

var _ repository.ThrowRepository = (*DB)(nil)

// ThrowAndReassign performs the throw as a single transaction:
//
//  1. append the audit row (never mutated afterwards),
//  2. bump the per-category counter; the upsert creates the row with
//     count 1 on first use, so concurrent first callers cannot race a
//     get-then-create window,
//  3. reassign the status to the new mentor.
//
// Read flags and the mentor letter are deliberately untouched.
func (db *DB) ThrowAndReassign(ctx context.Context, status *model.LetterStatus, categoryName, newMentorID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning throw transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO throw_letters (id, letter_status_id, thrown_by, created_at)
		 VALUES (?, ?, ?, ?)`,
		xid.New().String(), status.ID, status.MentorID, time.Now())
	if err != nil {
		return fmt.Errorf("sqlite: inserting throw audit for status %s: %w", status.ID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO throw_categories (category_name, count) VALUES (?, 1)
		 ON CONFLICT(category_name) DO UPDATE SET count = count + 1`,
		categoryName)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing throw counter for %q: %w", categoryName, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE letter_status SET mentor_id = ? WHERE id = ?`,
		newMentorID, status.ID)
	if err != nil {
		return fmt.Errorf("sqlite: reassigning mentor on status %s: %w", status.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing throw transaction: %w", err)
	}
	return nil
}

// CategoryCounts returns the running throw counters, highest first.
func (db *DB) CategoryCounts(ctx context.Context) ([]model.ThrowCategoryCount, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT category_name, count FROM throw_categories ORDER BY count DESC, category_name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing throw counters: %w", err)
	}
	defer rows.Close()

	var counts []model.ThrowCategoryCount
	for rows.Next() {
		var c model.ThrowCategoryCount
		if err := rows.Scan(&c.CategoryName, &c.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning throw counter: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing throw counters: %w", err)
	}
	return counts, nil
}
