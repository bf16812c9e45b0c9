package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
)

// storedPlan is a plan together with the goal profile it was generated from.
type storedPlan struct {
	Plan plan.WorkoutPlan
	// GoalProfile is the structured goal summary at generation time.
	GoalProfile map[string]string
	// ArchivedAt is zero until the plan is archived as a completed challenge.
	ArchivedAt time.Time
}

func (sp storedPlan) isArchived() bool {
	return !sp.ArchivedAt.IsZero()
}

// sqlitePlanRepository stores the plans of each device.
type sqlitePlanRepository struct {
	baseRepository
}

const selectPlan = `SELECT data, goal_profile, archived_at FROM workout_plans`

// scanPlan reads one row selected with selectPlan.
func scanPlan(row *sql.Row) (storedPlan, error) {
	var (
		data       string
		profile    sql.NullString
		archivedAt sql.NullString
		sp         storedPlan
	)
	err := row.Scan(&data, &profile, &archivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storedPlan{}, ErrNotFound
	}
	if err != nil {
		return storedPlan{}, fmt.Errorf("scan plan: %w", err)
	}
	if err = json.Unmarshal([]byte(data), &sp.Plan); err != nil {
		return storedPlan{}, fmt.Errorf("decode plan: %w", err)
	}
	if profile.Valid {
		if err = json.Unmarshal([]byte(profile.String), &sp.GoalProfile); err != nil {
			return storedPlan{}, fmt.Errorf("decode goal profile: %w", err)
		}
	}
	if sp.ArchivedAt, err = parseTimestamp(archivedAt); err != nil {
		return storedPlan{}, fmt.Errorf("parse archived_at: %w", err)
	}
	return sp, nil
}

func getPlan(ctx context.Context, q queryRower, device string, id uuid.UUID) (storedPlan, error) {
	return scanPlan(q.QueryRowContext(ctx, selectPlan+` WHERE device_id = ? AND id = ?`, device, id.String()))
}

// Get returns a plan of the device by ID, archived or not.
func (r *sqlitePlanRepository) Get(ctx context.Context, id uuid.UUID) (storedPlan, error) {
	device, err := deviceID(ctx)
	if err != nil {
		return storedPlan{}, err
	}
	return getPlan(ctx, r.db.ReadOnly, device, id)
}

// Current returns the most recently created plan of the device that hasn't been archived.
func (r *sqlitePlanRepository) Current(ctx context.Context) (storedPlan, error) {
	device, err := deviceID(ctx)
	if err != nil {
		return storedPlan{}, err
	}
	return scanPlan(r.db.ReadOnly.QueryRowContext(ctx, selectPlan+`
		WHERE device_id = ? AND archived_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, device))
}

// Create stores a new suggested plan and discards the device's earlier suggestions that were never accepted.
func (r *sqlitePlanRepository) Create(ctx context.Context, sp storedPlan) error {
	device, err := deviceID(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sp.Plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	profile, err := json.Marshal(sp.GoalProfile)
	if err != nil {
		return fmt.Errorf("encode goal profile: %w", err)
	}

	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer r.db.Rollback(ctx, tx)

	if err = ensureDevice(ctx, tx, device); err != nil {
		return err
	}
	var discarded sql.Result
	if discarded, err = tx.ExecContext(ctx, `
		DELETE FROM workout_plans
		WHERE device_id = ? AND status = ? AND archived_at IS NULL`,
		device, string(plan.StatusSuggested)); err != nil {
		return fmt.Errorf("discard earlier suggestions: %w", err)
	}
	created := formatTimestamp(sp.Plan.CreatedAt)
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO workout_plans (id, device_id, status, data, goal_profile, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sp.Plan.ID.String(), device, string(sp.Plan.Status), string(data), string(profile), created, created); err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	if n, _ := discarded.RowsAffected(); n > 0 {
		r.logger.LogAttrs(ctx, slog.LevelInfo, "discarded earlier suggestions", slog.Int64("count", n))
	}
	return nil
}

// Update applies updateFn to a plan and stores the result if updateFn reports a change. Archived plans are
// read-only.
func (r *sqlitePlanRepository) Update(
	ctx context.Context,
	id uuid.UUID,
	updateFn func(p plan.WorkoutPlan) (plan.WorkoutPlan, bool, error),
) (plan.WorkoutPlan, error) {
	device, err := deviceID(ctx)
	if err != nil {
		return plan.WorkoutPlan{}, err
	}

	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer r.db.Rollback(ctx, tx)

	sp, err := getPlan(ctx, tx, device, id)
	if err != nil {
		return plan.WorkoutPlan{}, err
	}
	if sp.isArchived() {
		return plan.WorkoutPlan{}, ErrPlanArchived
	}

	updated, changed, err := updateFn(sp.Plan)
	if err != nil {
		return plan.WorkoutPlan{}, err
	}
	if !changed {
		return sp.Plan, nil
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("encode plan: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE workout_plans
		SET status = ?, data = ?, updated_at = ?
		WHERE device_id = ? AND id = ?`,
		string(updated.Status), string(data), formatTimestamp(r.now()), device, id.String()); err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("update plan: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return plan.WorkoutPlan{}, fmt.Errorf("commit transaction: %w", err)
	}
	return updated, nil
}

// Delete removes a plan that hasn't been archived.
func (r *sqlitePlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	device, err := deviceID(ctx)
	if err != nil {
		return err
	}
	result, err := r.db.ReadWrite.ExecContext(ctx, `
		DELETE FROM workout_plans
		WHERE device_id = ? AND id = ? AND archived_at IS NULL`, device, id.String())
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
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
