package inspection

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"inspection-platform/pkg/utils"
)

// PostgresRepo is the production Repository implementation.
//
// Assumed tables:
// - inspectors (id, agency_id, name, phone UNIQUE)
// - work_orders (id, agency_id, contract_ref, address, status, inspector_id,
//   scheduled_start, scheduled_end, actual_start, actual_end)
// - checklist_locations (id, work_order_id, name, position)
// - checklist_tasks (id, work_order_id, location, name, status, condition,
//   notes, position, completed_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetInspector(ctx context.Context, id string) (Inspector, bool, error) {
	const q = `
SELECT id, agency_id, name, phone
FROM inspectors
WHERE id = $1
`
	var in Inspector
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&in.ID, &in.AgencyID, &in.Name, &in.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Inspector{}, false, nil
		}
		return Inspector{}, false, err
	}
	return in, true, nil
}

func (r *PostgresRepo) FindInspectorByPhone(ctx context.Context, phone string) (Inspector, bool, error) {
	const q = `
SELECT id, agency_id, name, phone
FROM inspectors
WHERE phone = $1
`
	var in Inspector
	if err := r.db.QueryRowContext(ctx, q, phone).Scan(&in.ID, &in.AgencyID, &in.Name, &in.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Inspector{}, false, nil
		}
		return Inspector{}, false, err
	}
	return in, true, nil
}

func (r *PostgresRepo) ListJobsForDay(ctx context.Context, inspectorID string, dayStart, dayEnd time.Time) ([]WorkOrder, error) {
	const q = `
SELECT id, agency_id, contract_ref, address, status, inspector_id,
       scheduled_start, scheduled_end, actual_start, actual_end
FROM work_orders
WHERE inspector_id = $1
  AND scheduled_start >= $2
  AND scheduled_start < $3
ORDER BY scheduled_start ASC
`
	rows, err := r.db.QueryContext(ctx, q, inspectorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkOrder
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wo)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetWorkOrder(ctx context.Context, id string) (WorkOrder, bool, error) {
	const q = `
SELECT id, agency_id, contract_ref, address, status, inspector_id,
       scheduled_start, scheduled_end, actual_start, actual_end
FROM work_orders
WHERE id = $1
`
	wo, err := scanWorkOrder(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WorkOrder{}, false, nil
		}
		return WorkOrder{}, false, err
	}
	return wo, true, nil
}

// MarkWorkOrderStarted guards the transition in SQL so two concurrent starts
// cannot clobber a terminal status. Zero rows means the status changed under
// us; the caller must not report the transition as done.
func (r *PostgresRepo) MarkWorkOrderStarted(ctx context.Context, id string, at time.Time) error {
	const q = `
UPDATE work_orders
SET status = $2, actual_start = $3
WHERE id = $1 AND status = $4
`
	res, err := r.db.ExecContext(ctx, q, id, WorkOrderStarted, at, WorkOrderScheduled)
	if err != nil {
		return err
	}
	return requireTransition(res)
}

func (r *PostgresRepo) MarkWorkOrderCompleted(ctx context.Context, id string, at time.Time) error {
	const q = `
UPDATE work_orders
SET status = $2, actual_end = $3
WHERE id = $1 AND status = $4
`
	res, err := r.db.ExecContext(ctx, q, id, WorkOrderCompleted, at, WorkOrderStarted)
	if err != nil {
		return err
	}
	return requireTransition(res)
}

func requireTransition(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *PostgresRepo) ListLocations(ctx context.Context, workOrderID string) ([]Location, error) {
	const q = `
SELECT id, work_order_id, name, position
FROM checklist_locations
WHERE work_order_id = $1
ORDER BY position ASC
`
	rows, err := r.db.QueryContext(ctx, q, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.WorkOrderID, &l.Name, &l.Position); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListTasks(ctx context.Context, workOrderID, location string) ([]Task, error) {
	const q = `
SELECT id, work_order_id, location, name, status, condition, notes, position, completed_at
FROM checklist_tasks
WHERE work_order_id = $1 AND LOWER(location) = LOWER($2)
ORDER BY position ASC
`
	return r.queryTasks(ctx, q, workOrderID, location)
}

func (r *PostgresRepo) ListAllTasks(ctx context.Context, workOrderID string) ([]Task, error) {
	const q = `
SELECT id, work_order_id, location, name, status, condition, notes, position, completed_at
FROM checklist_tasks
WHERE work_order_id = $1
ORDER BY position ASC
`
	return r.queryTasks(ctx, q, workOrderID)
}

func (r *PostgresRepo) GetTask(ctx context.Context, taskID string) (Task, bool, error) {
	const q = `
SELECT id, work_order_id, location, name, status, condition, notes, position, completed_at
FROM checklist_tasks
WHERE id = $1
`
	t, err := scanTask(r.db.QueryRowContext(ctx, q, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, false, nil
		}
		return Task{}, false, err
	}
	return t, true, nil
}

func (r *PostgresRepo) CompleteTask(ctx context.Context, taskID, notes string, at time.Time) error {
	const q = `
UPDATE checklist_tasks
SET status = $2,
    completed_at = $3,
    notes = CASE WHEN $4 <> '' THEN $4 ELSE notes END
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, taskID, TaskCompleted, at, notes)
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

// CompleteLocationTasks runs inside a transaction so a reader never observes
// a partially completed location. Every task gets the same completed_at.
func (r *PostgresRepo) CompleteLocationTasks(ctx context.Context, workOrderID, location, notes string, at time.Time) (int, error) {
	const q = `
UPDATE checklist_tasks
SET status = $3,
    completed_at = $4,
    notes = CASE WHEN $5 <> '' THEN $5 ELSE notes END
WHERE work_order_id = $1 AND LOWER(location) = LOWER($2)
`
	var count int64
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, workOrderID, location, TaskCompleted, at, notes)
		if err != nil {
			return err
		}
		count, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkOrder(row rowScanner) (WorkOrder, error) {
	var wo WorkOrder
	var actualStart, actualEnd sql.NullTime
	if err := row.Scan(
		&wo.ID,
		&wo.AgencyID,
		&wo.ContractRef,
		&wo.Address,
		&wo.Status,
		&wo.InspectorID,
		&wo.ScheduledStart,
		&wo.ScheduledEnd,
		&actualStart,
		&actualEnd,
	); err != nil {
		return WorkOrder{}, err
	}
	if actualStart.Valid {
		wo.ActualStart = &actualStart.Time
	}
	if actualEnd.Valid {
		wo.ActualEnd = &actualEnd.Time
	}
	return wo, nil
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var condition, notes sql.NullString
	var completedAt sql.NullTime
	if err := row.Scan(
		&t.ID,
		&t.WorkOrderID,
		&t.Location,
		&t.Name,
		&t.Status,
		&condition,
		&notes,
		&t.Position,
		&completedAt,
	); err != nil {
		return Task{}, err
	}
	t.Condition = condition.String
	t.Notes = notes.String
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

func (r *PostgresRepo) queryTasks(ctx context.Context, q string, args ...any) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
