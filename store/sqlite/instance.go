package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/campushub/concierge"
	"github.com/campushub/concierge/id"
	"github.com/campushub/concierge/workflow"
)

const instanceColumns = `id, workflow_type, owner_id, current_step, total_steps,
	step_data, state, last_error, version, created_at, updated_at`

// CreateInstance persists a new workflow instance.
func (s *Store) CreateInstance(ctx context.Context, inst *workflow.Instance) error {
	stepData, lastErr, err := encodeJSONFields(inst)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO concierge_instances (
			id, workflow_type, owner_id, current_step, total_steps,
			step_data, state, last_error, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID.String(), inst.Type, inst.OwnerID,
		inst.CurrentStep, inst.TotalSteps,
		stepData, string(inst.State), lastErr,
		inst.Version, inst.CreatedAt, inst.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return concierge.ErrInstanceExists
		}
		return fmt.Errorf("concierge/sqlite: create instance: %w", err)
	}
	return nil
}

// GetInstance retrieves an instance by ID.
func (s *Store) GetInstance(ctx context.Context, instanceID id.InstanceID) (*workflow.Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+instanceColumns+`
		FROM concierge_instances
		WHERE id = ?`,
		instanceID.String(),
	)

	inst, err := scanInstance(row)
	if err != nil {
		if isNoRows(err) {
			return nil, concierge.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("concierge/sqlite: get instance: %w", err)
	}
	return inst, nil
}

// UpdateInstance persists changes to an existing instance. The update
// only applies when the stored version matches inst.Version; on success
// the version and UpdatedAt on inst are advanced.
func (s *Store) UpdateInstance(ctx context.Context, inst *workflow.Instance) error {
	stepData, lastErr, err := encodeJSONFields(inst)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE concierge_instances SET
			workflow_type = ?, owner_id = ?,
			current_step = ?, total_steps = ?,
			step_data = ?, state = ?, last_error = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		inst.Type, inst.OwnerID,
		inst.CurrentStep, inst.TotalSteps,
		stepData, string(inst.State), lastErr,
		now,
		inst.ID.String(), inst.Version,
	)
	if err != nil {
		return fmt.Errorf("concierge/sqlite: update instance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("concierge/sqlite: update instance: %w", err)
	}
	if n == 0 {
		return s.classifyUpdateMiss(ctx, inst)
	}

	inst.Version++
	inst.UpdatedAt = now
	return nil
}

// classifyUpdateMiss distinguishes a missing row from a version
// mismatch after an update touched zero rows.
func (s *Store) classifyUpdateMiss(ctx context.Context, inst *workflow.Instance) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM concierge_instances WHERE id = ?)`,
		inst.ID.String(),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("concierge/sqlite: update instance: %w", err)
	}
	if !exists {
		return concierge.ErrInstanceNotFound
	}
	return concierge.ErrConcurrentModification
}

// FindActive returns the owner's most recently created active instance,
// or ErrInstanceNotFound when the owner has none.
func (s *Store) FindActive(ctx context.Context, ownerID string) (*workflow.Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+instanceColumns+`
		FROM concierge_instances
		WHERE owner_id = ? AND state IN ('running', 'paused')
		ORDER BY created_at DESC
		LIMIT 1`,
		ownerID,
	)

	inst, err := scanInstance(row)
	if err != nil {
		if isNoRows(err) {
			return nil, concierge.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("concierge/sqlite: find active: %w", err)
	}
	return inst, nil
}

// ListInstances returns instances matching opts, oldest first.
func (s *Store) ListInstances(ctx context.Context, opts workflow.ListOpts) ([]*workflow.Instance, error) {
	var (
		conds []string
		args  []any
	)

	if opts.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.Type != "" {
		conds = append(conds, "workflow_type = ?")
		args = append(args, opts.Type)
	}
	if opts.State != "" {
		conds = append(conds, "state = ?")
		args = append(args, string(opts.State))
	}
	if !opts.UpdatedBefore.IsZero() {
		conds = append(conds, "updated_at < ?")
		args = append(args, opts.UpdatedBefore)
	}

	query := `SELECT ` + instanceColumns + ` FROM concierge_instances`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			// SQLite requires LIMIT before OFFSET; -1 means unbounded.
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("concierge/sqlite: list instances: %w", err)
	}
	defer rows.Close()

	var out []*workflow.Instance
	for rows.Next() {
		inst, scanErr := scanInstance(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("concierge/sqlite: list instances: %w", scanErr)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("concierge/sqlite: list instances: %w", err)
	}
	return out, nil
}

// encodeJSONFields marshals the JSON text columns of an instance.
func encodeJSONFields(inst *workflow.Instance) (stepData []byte, lastErr any, err error) {
	stepData, err = json.Marshal(inst.StepData)
	if err != nil {
		return nil, nil, fmt.Errorf("concierge/sqlite: encode step data: %w", err)
	}
	if inst.LastError != nil {
		b, mErr := json.Marshal(inst.LastError)
		if mErr != nil {
			return nil, nil, fmt.Errorf("concierge/sqlite: encode last error: %w", mErr)
		}
		lastErr = b
	}
	return stepData, lastErr, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanInstance reads one instance row.
func scanInstance(row scanner) (*workflow.Instance, error) {
	var (
		inst     workflow.Instance
		rawID    string
		state    string
		stepData []byte
		lastErr  sql.NullString
	)

	err := row.Scan(
		&rawID, &inst.Type, &inst.OwnerID,
		&inst.CurrentStep, &inst.TotalSteps,
		&stepData, &state, &lastErr,
		&inst.Version, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.ID, err = id.ParseInstanceID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse instance id: %w", err)
	}
	inst.State = workflow.State(state)

	if len(stepData) > 0 {
		if err := json.Unmarshal(stepData, &inst.StepData); err != nil {
			return nil, fmt.Errorf("decode step data: %w", err)
		}
	}
	if lastErr.Valid && lastErr.String != "" {
		inst.LastError = &workflow.StepError{}
		if err := json.Unmarshal([]byte(lastErr.String), inst.LastError); err != nil {
			return nil, fmt.Errorf("decode last error: %w", err)
		}
	}
	return &inst, nil
}
