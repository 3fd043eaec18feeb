package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
)

type RequestRepository struct {
	db *sql.DB
	d  Dialect
}

func NewRequestRepository(db *sql.DB, d Dialect) *RequestRepository {
	return &RequestRepository{db: db, d: d}
}

var _ domain.RequestRepository = (*RequestRepository)(nil)

const requestCols = `id, title, description, category, target_segment, estimated_budget, status,
 overall_score, recommendation, confidence, failure_reason, run_id, submitted_at, updated_at`

// Create insert Request baru
func (r *RequestRepository) Create(ctx context.Context, req *domain.Request) error {
	now := time.Now().UTC()
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = now
	}
	req.UpdatedAt = now
	q := r.d.rebind(`INSERT INTO analysis_requests (` + requestCols + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	_, err := r.db.ExecContext(ctx, q,
		req.ID, req.Title, req.Description, stringOrDash(string(req.Category)), req.TargetSegment, nullFloat(req.Budget),
		stringOrDash(string(req.Status)), nullInt(req.OverallScore), string(req.Recommendation), nullFloat(req.Confidence),
		nullString(req.FailureReason), req.RunID, req.SubmittedAt.UTC(), req.UpdatedAt,
	)
	return err
}

func scanRequest(row interface{ Scan(...any) error }) (*domain.Request, error) {
	var (
		req          domain.Request
		budget, conf sql.NullFloat64
		score        sql.NullInt64
		reason       sql.NullString
		rec          string
	)
	if err := row.Scan(&req.ID, &req.Title, &req.Description, &req.Category, &req.TargetSegment, &budget, &req.Status,
		&score, &rec, &conf, &reason, &req.RunID, &req.SubmittedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	req.Budget = floatPtr(budget)
	req.OverallScore = intPtr(score)
	req.Confidence = floatPtr(conf)
	req.Recommendation = domain.Recommendation(rec)
	req.FailureReason = reason.String
	return &req, nil
}

// Get by ID
func (r *RequestRepository) Get(ctx context.Context, id domain.RequestID) (*domain.Request, error) {
	q := r.d.rebind(`SELECT ` + requestCols + ` FROM analysis_requests WHERE id=? LIMIT 1`)
	req, err := scanRequest(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return req, nil
}

// List newest first, page dimulai dari 1
func (r *RequestRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Request, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	q := r.d.rebind(`SELECT ` + requestCols + ` FROM analysis_requests ORDER BY submitted_at DESC, id LIMIT ? OFFSET ?`)
	return r.query(ctx, q, pageSize, (page-1)*pageSize)
}

func (r *RequestRepository) ListByStatus(ctx context.Context, statuses ...domain.Status) ([]*domain.Request, error) {
	if len(statuses) == 0 {
		return []*domain.Request{}, nil
	}
	args := make([]any, 0, len(statuses))
	ph := ""
	for i, s := range statuses {
		if i > 0 {
			ph += ","
		}
		ph += "?"
		args = append(args, string(s))
	}
	q := r.d.rebind(`SELECT ` + requestCols + ` FROM analysis_requests WHERE status IN (` + ph + `) ORDER BY submitted_at`)
	return r.query(ctx, q, args...)
}

func (r *RequestRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Request, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// UpdateStatus sets status and failure reason.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id domain.RequestID, status domain.Status, reason string) error {
	q := r.d.rebind(`UPDATE analysis_requests SET status=?, failure_reason=?, updated_at=? WHERE id=?`)
	res, err := r.db.ExecContext(ctx, q, string(status), nullString(reason), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update status %s: %w", id, err)
	}
	return affected(res)
}

// StartRun moves the request to Analyzing under a new run id. Work of any
// earlier run compares its id against this one and drops itself.
func (r *RequestRepository) StartRun(ctx context.Context, id domain.RequestID, runID string) error {
	q := r.d.rebind(`UPDATE analysis_requests SET status=?, run_id=?, failure_reason=NULL, updated_at=? WHERE id=?`)
	res, err := r.db.ExecContext(ctx, q, string(domain.StatusAnalyzing), runID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return affected(res)
}

func (r *RequestRepository) Complete(ctx context.Context, id domain.RequestID, score int, rec domain.Recommendation, confidence float64) error {
	q := r.d.rebind(`UPDATE analysis_requests
SET status=?, overall_score=?, recommendation=?, confidence=?, failure_reason=NULL, updated_at=?
WHERE id=?`)
	res, err := r.db.ExecContext(ctx, q, string(domain.StatusCompleted), score, string(rec), confidence, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r *RequestRepository) Reset(ctx context.Context, id domain.RequestID) error {
	q := r.d.rebind(`UPDATE analysis_requests
SET status=?, overall_score=NULL, recommendation='', confidence=NULL, failure_reason=NULL, run_id='', updated_at=?
WHERE id=?`)
	res, err := r.db.ExecContext(ctx, q, string(domain.StatusPending), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return affected(res)
}

// Summary hitung total per status dan rata-rata skor yang sudah selesai
func (r *RequestRepository) Summary(ctx context.Context) (domain.Summary, error) {
	sum := domain.Summary{ByStatus: map[domain.Status]int{}}
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM analysis_requests GROUP BY status`)
	if err != nil {
		return sum, err
	}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			rows.Close()
			return sum, err
		}
		sum.ByStatus[domain.Status(st)] = n
		sum.Total += n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return sum, err
	}
	rows.Close()

	var avg sql.NullFloat64
	q := r.d.rebind(`SELECT AVG(overall_score) FROM analysis_requests WHERE status=? AND overall_score IS NOT NULL`)
	if err := r.db.QueryRowContext(ctx, q, string(domain.StatusCompleted)).Scan(&avg); err != nil {
		return sum, err
	}
	sum.AverageScore = floatPtr(avg)
	return sum, nil
}
