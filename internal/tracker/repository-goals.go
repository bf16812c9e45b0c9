package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jersjar7/Fit14-sub001/internal/goal"
)

// sqliteGoalRepository stores the goal draft of each device.
type sqliteGoalRepository struct {
	baseRepository
}

// Get returns the device's goal draft or ErrNotFound.
func (r *sqliteGoalRepository) Get(ctx context.Context) (goal.Data, error) {
	device, err := deviceID(ctx)
	if err != nil {
		return goal.Data{}, err
	}
	return r.get(ctx, r.db.ReadOnly, device)
}

func (r *sqliteGoalRepository) get(ctx context.Context, q queryRower, device string) (goal.Data, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT data FROM goal_drafts WHERE device_id = ?`, device).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return goal.Data{}, ErrNotFound
	}
	if err != nil {
		return goal.Data{}, fmt.Errorf("query goal draft: %w", err)
	}
	var d goal.Data
	if err = json.Unmarshal([]byte(raw), &d); err != nil {
		return goal.Data{}, fmt.Errorf("decode goal draft: %w", err)
	}
	return d, nil
}

// Update loads the draft, or initial when the device has none, and stores what updateFn returns.
func (r *sqliteGoalRepository) Update(
	ctx context.Context,
	initial goal.Data,
	updateFn func(d goal.Data) (goal.Data, error),
) (goal.Data, error) {
	device, err := deviceID(ctx)
	if err != nil {
		return goal.Data{}, err
	}

	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return goal.Data{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer r.db.Rollback(ctx, tx)

	current, err := r.get(ctx, tx, device)
	switch {
	case errors.Is(err, ErrNotFound):
		current = initial
	case err != nil:
		return goal.Data{}, err
	}

	updated, err := updateFn(current)
	if err != nil {
		return goal.Data{}, err
	}
	raw, err := json.Marshal(updated)
	if err != nil {
		return goal.Data{}, fmt.Errorf("encode goal draft: %w", err)
	}

	if err = ensureDevice(ctx, tx, device); err != nil {
		return goal.Data{}, err
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO goal_drafts (device_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		device, string(raw), formatTimestamp(updated.LastModifiedAt)); err != nil {
		return goal.Data{}, fmt.Errorf("save goal draft: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return goal.Data{}, fmt.Errorf("commit transaction: %w", err)
	}
	return updated, nil
}

// Delete removes the device's draft. Deleting a missing draft is not an error.
func (r *sqliteGoalRepository) Delete(ctx context.Context) error {
	device, err := deviceID(ctx)
	if err != nil {
		return err
	}
	if _, err = r.db.ReadWrite.ExecContext(ctx, `DELETE FROM goal_drafts WHERE device_id = ?`, device); err != nil {
		return fmt.Errorf("delete goal draft: %w", err)
	}
	return nil
}
