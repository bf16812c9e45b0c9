package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/archive"
)

// sqliteChallengeRepository stores the completed challenges of each device.
type sqliteChallengeRepository struct {
	baseRepository
}

// List returns the device's challenges, most recently completed first.
func (r *sqliteChallengeRepository) List(ctx context.Context) (_ []archive.CompletedChallenge, err error) {
	device, err := deviceID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT data FROM completed_challenges
		WHERE device_id = ?
		ORDER BY completion_date DESC, id`, device)
	if err != nil {
		return nil, fmt.Errorf("query challenges: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var challenges []archive.CompletedChallenge
	for rows.Next() {
		var data string
		if err = rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		var c archive.CompletedChallenge
		if err = json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("decode challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return challenges, nil
}

// Get returns a challenge of the device by ID.
func (r *sqliteChallengeRepository) Get(ctx context.Context, id uuid.UUID) (archive.CompletedChallenge, error) {
	device, err := deviceID(ctx)
	if err != nil {
		return archive.CompletedChallenge{}, err
	}
	var data string
	err = r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT data FROM completed_challenges WHERE device_id = ? AND id = ?`, device, id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return archive.CompletedChallenge{}, ErrNotFound
	}
	if err != nil {
		return archive.CompletedChallenge{}, fmt.Errorf("query challenge: %w", err)
	}
	var c archive.CompletedChallenge
	if err = json.Unmarshal([]byte(data), &c); err != nil {
		return archive.CompletedChallenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return c, nil
}

// Archive turns a plan into a completed challenge with archiveFn and marks the plan archived, atomically.
func (r *sqliteChallengeRepository) Archive(
	ctx context.Context,
	planID uuid.UUID,
	archiveFn func(sp storedPlan) (archive.CompletedChallenge, error),
) (archive.CompletedChallenge, error) {
	device, err := deviceID(ctx)
	if err != nil {
		return archive.CompletedChallenge{}, err
	}

	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return archive.CompletedChallenge{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer r.db.Rollback(ctx, tx)

	sp, err := getPlan(ctx, tx, device, planID)
	if err != nil {
		return archive.CompletedChallenge{}, err
	}
	if sp.isArchived() {
		return archive.CompletedChallenge{}, ErrPlanArchived
	}
	c, err := archiveFn(sp)
	if err != nil {
		return archive.CompletedChallenge{}, err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return archive.CompletedChallenge{}, fmt.Errorf("encode challenge: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO completed_challenges (id, device_id, original_plan_id, completion_date, data)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID.String(), device, c.OriginalPlanID.String(), formatTimestamp(c.CompletionDate), string(data)); err != nil {
		return archive.CompletedChallenge{}, fmt.Errorf("insert challenge: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE workout_plans SET archived_at = ?, updated_at = ? WHERE device_id = ? AND id = ?`,
		formatTimestamp(c.CompletionDate), formatTimestamp(c.CompletionDate), device, planID.String()); err != nil {
		return archive.CompletedChallenge{}, fmt.Errorf("mark plan archived: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return archive.CompletedChallenge{}, fmt.Errorf("commit transaction: %w", err)
	}
	return c, nil
}

// Delete removes a challenge. The archived source plan stays read-only.
func (r *sqliteChallengeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	device, err := deviceID(ctx)
	if err != nil {
		return err
	}
	result, err := r.db.ReadWrite.ExecContext(ctx, `
		DELETE FROM completed_challenges WHERE device_id = ? AND id = ?`, device, id.String())
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
