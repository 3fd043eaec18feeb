package analysis

import (
	"context"
	"time"
)

// RequestRepository port (interface untuk persistence)
type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id RequestID) (*Request, error)
	List(ctx context.Context, page, pageSize int) ([]*Request, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Request, error)
	// UpdateStatus is a filter-and-update; reason is stored as the failure reason.
	UpdateStatus(ctx context.Context, id RequestID, status Status, reason string) error
	// StartRun sets Analyzing and records runID as the current run.
	StartRun(ctx context.Context, id RequestID, runID string) error
	// Complete marks the request Completed and mirrors the final report summary fields.
	Complete(ctx context.Context, id RequestID, score int, rec Recommendation, confidence float64) error
	// Reset clears the summary fields and the run and sets Pending.
	Reset(ctx context.Context, id RequestID) error
	Summary(ctx context.Context) (Summary, error)
}

// ReportRepository persists AgentReports.
type ReportRepository interface {
	// GetOrCreate returns the report for (request, agent), inserting a Pending row if none exists.
	GetOrCreate(ctx context.Context, requestID RequestID, agent string) (*AgentReport, bool, error)
	// Save updates the report row in place by id.
	Save(ctx context.Context, r *AgentReport) error
	ListByRequest(ctx context.Context, requestID RequestID) ([]*AgentReport, error)
	DeleteByRequest(ctx context.Context, requestID RequestID) error
}

// FinalReportRepository persists FinalReports, unique per request.
type FinalReportRepository interface {
	// Upsert is a get-or-create on the request key; created is false when an existing row was updated.
	Upsert(ctx context.Context, f *FinalReport) (created bool, err error)
	Get(ctx context.Context, requestID RequestID) (*FinalReport, error)
	Delete(ctx context.Context, requestID RequestID) error
}

// TaskRepository stores the ExecutionTask audit trail.
type TaskRepository interface {
	Create(ctx context.Context, t *ExecutionTask) error
	Finish(ctx context.Context, id string, status TaskStatus, result, errMsg string, at time.Time) error
	ListByRequest(ctx context.Context, requestID RequestID) ([]*ExecutionTask, error)
}

// ArchiveStore port (interface untuk penyimpanan artefak)
type ArchiveStore interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
}
