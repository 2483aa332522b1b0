package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO concierge_instances (
			id, workflow_type, owner_id, current_step, total_steps,
			step_data, state, last_error, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inst.ID.String(), inst.Type, inst.OwnerID,
		inst.CurrentStep, inst.TotalSteps,
		stepData, string(inst.State), lastErr,
		inst.Version, inst.CreatedAt, inst.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return concierge.ErrInstanceExists
		}
		return fmt.Errorf("concierge/postgres: create instance: %w", err)
	}
	return nil
}

// GetInstance retrieves an instance by ID.
func (s *Store) GetInstance(ctx context.Context, instanceID id.InstanceID) (*workflow.Instance, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+instanceColumns+`
		FROM concierge_instances
		WHERE id = $1`,
		instanceID.String(),
	)

	inst, err := scanInstance(row)
	if err != nil {
		if isNoRows(err) {
			return nil, concierge.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("concierge/postgres: get instance: %w", err)
	}
	return inst, nil
}

// UpdateInstance persists changes to an existing instance. The update
// only applies when the stored version matches inst.Version; on success
// the version and UpdatedAt on inst are advanced to the stored values.
func (s *Store) UpdateInstance(ctx context.Context, inst *workflow.Instance) error {
	stepData, lastErr, err := encodeJSONFields(inst)
	if err != nil {
		return err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE concierge_instances SET
			workflow_type = $3, owner_id = $4,
			current_step = $5, total_steps = $6,
			step_data = $7, state = $8, last_error = $9,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		inst.ID.String(), inst.Version,
		inst.Type, inst.OwnerID,
		inst.CurrentStep, inst.TotalSteps,
		stepData, string(inst.State), lastErr,
	)

	if err := row.Scan(&inst.Version, &inst.UpdatedAt); err != nil {
		if isNoRows(err) {
			return s.classifyUpdateMiss(ctx, inst)
		}
		return fmt.Errorf("concierge/postgres: update instance: %w", err)
	}
	return nil
}

// classifyUpdateMiss distinguishes a missing row from a version
// mismatch after an update touched zero rows.
func (s *Store) classifyUpdateMiss(ctx context.Context, inst *workflow.Instance) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM concierge_instances WHERE id = $1)`,
		inst.ID.String(),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("concierge/postgres: update instance: %w", err)
	}
	if !exists {
		return concierge.ErrInstanceNotFound
	}
	return concierge.ErrConcurrentModification
}

// FindActive returns the owner's most recently created active instance,
// or ErrInstanceNotFound when the owner has none.
func (s *Store) FindActive(ctx context.Context, ownerID string) (*workflow.Instance, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+instanceColumns+`
		FROM concierge_instances
		WHERE owner_id = $1 AND state IN ('running', 'paused')
		ORDER BY created_at DESC
		LIMIT 1`,
		ownerID,
	)

	inst, err := scanInstance(row)
	if err != nil {
		if isNoRows(err) {
			return nil, concierge.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("concierge/postgres: find active: %w", err)
	}
	return inst, nil
}

// ListInstances returns instances matching opts, oldest first.
func (s *Store) ListInstances(ctx context.Context, opts workflow.ListOpts) ([]*workflow.Instance, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.OwnerID != "" {
		conds = append(conds, "owner_id = "+arg(opts.OwnerID))
	}
	if opts.Type != "" {
		conds = append(conds, "workflow_type = "+arg(opts.Type))
	}
	if opts.State != "" {
		conds = append(conds, "state = "+arg(string(opts.State)))
	}
	if !opts.UpdatedBefore.IsZero() {
		conds = append(conds, "updated_at < "+arg(opts.UpdatedBefore))
	}

	query := `SELECT ` + instanceColumns + ` FROM concierge_instances`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"
	if opts.Limit > 0 {
		query += " LIMIT " + arg(opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET " + arg(opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("concierge/postgres: list instances: %w", err)
	}
	defer rows.Close()

	var out []*workflow.Instance
	for rows.Next() {
		inst, scanErr := scanInstance(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("concierge/postgres: list instances: %w", scanErr)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("concierge/postgres: list instances: %w", err)
	}
	return out, nil
}

// encodeJSONFields marshals the JSONB columns of an instance.
func encodeJSONFields(inst *workflow.Instance) (stepData, lastErr []byte, err error) {
	stepData, err = json.Marshal(inst.StepData)
	if err != nil {
		return nil, nil, fmt.Errorf("concierge/postgres: encode step data: %w", err)
	}
	if inst.LastError != nil {
		lastErr, err = json.Marshal(inst.LastError)
		if err != nil {
			return nil, nil, fmt.Errorf("concierge/postgres: encode last error: %w", err)
		}
	}
	return stepData, lastErr, nil
}

// scanInstance reads one instance row from a pgx.Row or pgx.Rows.
func scanInstance(row pgx.Row) (*workflow.Instance, error) {
	var (
		inst     workflow.Instance
		rawID    string
		state    string
		stepData []byte
		lastErr  []byte
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
	if len(lastErr) > 0 {
		inst.LastError = &workflow.StepError{}
		if err := json.Unmarshal(lastErr, inst.LastError); err != nil {
			return nil, fmt.Errorf("decode last error: %w", err)
		}
	}
	return &inst, nil
}
