package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
)

type ReportRepository struct {
	db *sql.DB
	d  Dialect
}

func NewReportRepository(db *sql.DB, d Dialect) *ReportRepository {
	return &ReportRepository{db: db, d: d}
}

var _ domain.ReportRepository = (*ReportRepository)(nil)

const reportCols = `id, request_id, agent_type, content, structured_data, score, confidence, execution_ms,
 backend, model, token_usage, cost_estimate, status, error_message, created_at, updated_at`

// GetOrCreate relies on the (request_id, agent_type) unique key: concurrent
// callers race on the insert and all read back the same row.
func (r *ReportRepository) GetOrCreate(ctx context.Context, requestID domain.RequestID, agent string) (*domain.AgentReport, bool, error) {
	now := time.Now().UTC()
	q := r.d.insertIgnore("agent_reports", "id", "request_id", "agent_type", "structured_data", "status", "created_at", "updated_at")
	res, err := r.db.ExecContext(ctx, q, uuid.NewString(), requestID, agent, "{}", string(domain.ReportPending), now, now)
	if err != nil {
		return nil, false, fmt.Errorf("create report %s/%s: %w", requestID, agent, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	rep, err := r.get(ctx, requestID, agent)
	if err != nil {
		return nil, false, err
	}
	return rep, n == 1, nil
}

func (r *ReportRepository) get(ctx context.Context, requestID domain.RequestID, agent string) (*domain.AgentReport, error) {
	q := r.d.rebind(`SELECT ` + reportCols + ` FROM agent_reports WHERE request_id=? AND agent_type=? LIMIT 1`)
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, requestID, agent))
	if err != nil {
		return nil, notFound(err)
	}
	return rep, nil
}

func scanReport(row interface{ Scan(...any) error }) (*domain.AgentReport, error) {
	var (
		rep           domain.AgentReport
		content, data sql.NullString
		errMsg        sql.NullString
		score         sql.NullInt64
		ms            int64
	)
	if err := row.Scan(&rep.ID, &rep.RequestID, &rep.Agent, &content, &data, &score, &rep.Confidence, &ms,
		&rep.Backend, &rep.Model, &rep.TokenUsage, &rep.Cost, &rep.Status, &errMsg, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
		return nil, err
	}
	rep.Content = content.String
	rep.Error = errMsg.String
	rep.Score = intPtr(score)
	rep.Duration = time.Duration(ms) * time.Millisecond
	rep.Payload = map[string]any{}
	if err := decodeJSON(data, &rep.Payload); err != nil {
		return nil, fmt.Errorf("decode structured_data of report %s: %w", rep.ID, err)
	}
	return &rep, nil
}

// Save update report in place berdasarkan id
func (r *ReportRepository) Save(ctx context.Context, rep *domain.AgentReport) error {
	payload := rep.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := encodeJSON(payload)
	if err != nil {
		return fmt.Errorf("encode structured_data: %w", err)
	}
	rep.UpdatedAt = time.Now().UTC()
	q := r.d.rebind(`UPDATE agent_reports
SET content=?, structured_data=?, score=?, confidence=?, execution_ms=?, backend=?, model=?,
 token_usage=?, cost_estimate=?, status=?, error_message=?, updated_at=?
WHERE id=?`)
	res, err := r.db.ExecContext(ctx, q,
		nullString(rep.Content), data, nullInt(rep.Score), rep.Confidence, rep.Duration.Milliseconds(), rep.Backend, rep.Model,
		rep.TokenUsage, rep.Cost, stringOrDash(string(rep.Status)), nullString(rep.Error), rep.UpdatedAt,
		rep.ID,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", rep.ID, err)
	}
	return affected(res)
}

func (r *ReportRepository) ListByRequest(ctx context.Context, requestID domain.RequestID) ([]*domain.AgentReport, error) {
	q := r.d.rebind(`SELECT ` + reportCols + ` FROM agent_reports WHERE request_id=? ORDER BY created_at, agent_type`)
	rows, err := r.db.QueryContext(ctx, q, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.AgentReport{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *ReportRepository) DeleteByRequest(ctx context.Context, requestID domain.RequestID) error {
	_, err := r.db.ExecContext(ctx, r.d.rebind(`DELETE FROM agent_reports WHERE request_id=?`), requestID)
	return err
}
