package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
)

type TaskRepository struct {
	db *sql.DB
	d  Dialect
}

func NewTaskRepository(db *sql.DB, d Dialect) *TaskRepository {
	return &TaskRepository{db: db, d: d}
}

var _ domain.TaskRepository = (*TaskRepository)(nil)

// Create insert audit row
func (r *TaskRepository) Create(ctx context.Context, t *domain.ExecutionTask) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	q := r.d.rebind(`INSERT INTO execution_tasks
(id, request_id, agent_type, report_id, status, attempt, result, error_message, created_at, started_at, completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.RequestID, t.Agent, t.ReportID, stringOrDash(string(t.Status)), t.Attempt,
		nullString(t.Result), nullString(t.Error), t.CreatedAt.UTC(), nullTime(t.StartedAt), nullTime(t.CompletedAt),
	)
	return err
}

func (r *TaskRepository) Finish(ctx context.Context, id string, status domain.TaskStatus, result, errMsg string, at time.Time) error {
	q := r.d.rebind(`UPDATE execution_tasks SET status=?, result=?, error_message=?, completed_at=? WHERE id=?`)
	res, err := r.db.ExecContext(ctx, q, string(status), nullString(result), nullString(errMsg), at.UTC(), id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r *TaskRepository) ListByRequest(ctx context.Context, requestID domain.RequestID) ([]*domain.ExecutionTask, error) {
	q := r.d.rebind(`SELECT id, request_id, agent_type, report_id, status, attempt, result, error_message,
 created_at, started_at, completed_at
FROM execution_tasks WHERE request_id=? ORDER BY created_at, id`)
	rows, err := r.db.QueryContext(ctx, q, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.ExecutionTask{}
	for rows.Next() {
		var (
			t              domain.ExecutionTask
			result, errMsg sql.NullString
			started, done  sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.RequestID, &t.Agent, &t.ReportID, &t.Status, &t.Attempt, &result, &errMsg,
			&t.CreatedAt, &started, &done); err != nil {
			return nil, err
		}
		t.Result = result.String
		t.Error = errMsg.String
		t.StartedAt = timePtr(started)
		t.CompletedAt = timePtr(done)
		out = append(out, &t)
	}
	return out, rows.Err()
}
