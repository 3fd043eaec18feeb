package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
)

type FinalReportRepository struct {
	db *sql.DB
	d  Dialect
}

func NewFinalReportRepository(db *sql.DB, d Dialect) *FinalReportRepository {
	return &FinalReportRepository{db: db, d: d}
}

var _ domain.FinalReportRepository = (*FinalReportRepository)(nil)

const finalCols = `id, request_id, executive_summary, key_findings, recommendations, major_risks, sub_scores,
 overall_score, final_recommendation, confidence, generated_by, agents_completed, agents_failed,
 total_cost, artifact_url, created_at, updated_at`

type finalJSON struct {
	findings, recs, risks, subs string
}

func encodeFinal(f *domain.FinalReport) (finalJSON, error) {
	var out finalJSON
	var err error
	if out.findings, err = encodeJSON(nonNil(f.KeyFindings)); err != nil {
		return out, err
	}
	if out.recs, err = encodeJSON(nonNil(f.Recommendations)); err != nil {
		return out, err
	}
	if out.risks, err = encodeJSON(nonNil(f.MajorRisks)); err != nil {
		return out, err
	}
	subs := f.SubScores
	if subs == nil {
		subs = map[string]int{}
	}
	out.subs, err = encodeJSON(subs)
	return out, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Upsert is get-or-create on request_id: the first synthesis inserts, a
// repeated one updates the same row.
func (r *FinalReportRepository) Upsert(ctx context.Context, f *domain.FinalReport) (bool, error) {
	js, err := encodeFinal(f)
	if err != nil {
		return false, fmt.Errorf("encode final report: %w", err)
	}
	now := time.Now().UTC()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	ins := r.d.insertIgnore("final_reports",
		"id", "request_id", "executive_summary", "key_findings", "recommendations", "major_risks", "sub_scores",
		"overall_score", "final_recommendation", "confidence", "generated_by", "agents_completed", "agents_failed",
		"total_cost", "artifact_url", "created_at", "updated_at")
	res, err := r.db.ExecContext(ctx, ins,
		f.ID, f.RequestID, f.ExecutiveSummary, js.findings, js.recs, js.risks, js.subs,
		f.OverallScore, string(f.Recommendation), f.Confidence, f.GeneratedBy, f.AgentsCompleted, f.AgentsFailed,
		f.TotalCost, f.ArtifactURL, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert final report %s: %w", f.RequestID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		upd := r.d.rebind(`UPDATE final_reports
SET executive_summary=?, key_findings=?, recommendations=?, major_risks=?, sub_scores=?,
 overall_score=?, final_recommendation=?, confidence=?, generated_by=?, agents_completed=?, agents_failed=?,
 total_cost=?, artifact_url=?, updated_at=?
WHERE request_id=?`)
		if _, err := r.db.ExecContext(ctx, upd,
			f.ExecutiveSummary, js.findings, js.recs, js.risks, js.subs,
			f.OverallScore, string(f.Recommendation), f.Confidence, f.GeneratedBy, f.AgentsCompleted, f.AgentsFailed,
			f.TotalCost, f.ArtifactURL, now, f.RequestID,
		); err != nil {
			return false, fmt.Errorf("update final report %s: %w", f.RequestID, err)
		}
	}

	stored, err := r.Get(ctx, f.RequestID)
	if err != nil {
		return false, err
	}
	*f = *stored
	return n == 1, nil
}

func (r *FinalReportRepository) Get(ctx context.Context, requestID domain.RequestID) (*domain.FinalReport, error) {
	q := r.d.rebind(`SELECT ` + finalCols + ` FROM final_reports WHERE request_id=? LIMIT 1`)
	var (
		f                                    domain.FinalReport
		summary, findings, recs, risks, subs sql.NullString
		rec                                  string
	)
	err := r.db.QueryRowContext(ctx, q, requestID).Scan(&f.ID, &f.RequestID, &summary, &findings, &recs, &risks, &subs,
		&f.OverallScore, &rec, &f.Confidence, &f.GeneratedBy, &f.AgentsCompleted, &f.AgentsFailed,
		&f.TotalCost, &f.ArtifactURL, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	f.ExecutiveSummary = summary.String
	f.Recommendation = domain.Recommendation(rec)
	f.KeyFindings, f.Recommendations, f.MajorRisks = []string{}, []string{}, []string{}
	f.SubScores = map[string]int{}
	for _, c := range []struct {
		src sql.NullString
		dst any
	}{{findings, &f.KeyFindings}, {recs, &f.Recommendations}, {risks, &f.MajorRisks}, {subs, &f.SubScores}} {
		if err := decodeJSON(c.src, c.dst); err != nil {
			return nil, fmt.Errorf("decode final report %s: %w", requestID, err)
		}
	}
	return &f, nil
}

func (r *FinalReportRepository) Delete(ctx context.Context, requestID domain.RequestID) error {
	_, err := r.db.ExecContext(ctx, r.d.rebind(`DELETE FROM final_reports WHERE request_id=?`), requestID)
	return err
}
