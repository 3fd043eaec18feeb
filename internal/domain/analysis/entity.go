package analysis

import (
	"strings"
	"time"
)

// RequestID identifier type
type RequestID string

// Status of an AnalysisRequest
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusQueued    Status = "QUEUE"
	StatusAnalyzing Status = "ANALYZING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further orchestration work applies.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// InProgress reports whether an orchestration currently owns the request.
func (s Status) InProgress() bool {
	return s == StatusQueued || s == StatusAnalyzing
}

// Category of the proposal
type Category string

const (
	CategoryTech          Category = "TECH"
	CategoryHealthcare    Category = "HEALTHCARE"
	CategoryFinance       Category = "FINANCE"
	CategoryEducation     Category = "EDUCATION"
	CategoryRetail        Category = "RETAIL"
	CategoryManufacturing Category = "MANUFACTURING"
	CategoryServices      Category = "SERVICES"
	CategoryOther         Category = "OTHER"
)

var categories = map[Category]bool{
	CategoryTech: true, CategoryHealthcare: true, CategoryFinance: true, CategoryEducation: true,
	CategoryRetail: true, CategoryManufacturing: true, CategoryServices: true, CategoryOther: true,
}

// Recommendation is the final decision enum of a FinalReport.
type Recommendation string

const (
	RecommendProceed        Recommendation = "PROCEED"
	RecommendProceedCaution Recommendation = "PROCEED_CAUTION"
	RecommendModify         Recommendation = "MODIFY"
	RecommendDelay          Recommendation = "DELAY"
	RecommendReject         Recommendation = "REJECT"
)

// ParseRecommendation maps a model-produced label onto the enum. Unknown labels become MODIFY.
func ParseRecommendation(s string) Recommendation {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "PROCEED":
		return RecommendProceed
	case "PROCEED_WITH_CAUTION", "PROCEED_CAUTION":
		return RecommendProceedCaution
	case "MODIFY":
		return RecommendModify
	case "DELAY":
		return RecommendDelay
	case "REJECT":
		return RecommendReject
	default:
		return RecommendModify
	}
}

// Aggregate Root: Request
type Request struct {
	ID             RequestID      `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Category       Category       `json:"category"`
	TargetSegment  string         `json:"target_segment,omitempty"`
	Budget         *float64       `json:"estimated_budget,omitempty"`
	Status         Status         `json:"status"`
	OverallScore   *int           `json:"overall_score,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`
	FailureReason  string         `json:"failure_reason,omitempty"`
	// RunID identifies the current orchestration run; empty until dispatched.
	RunID          string         `json:"run_id,omitempty"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ReportStatus of an AgentReport
type ReportStatus string

const (
	ReportPending    ReportStatus = "PENDING"
	ReportInProgress ReportStatus = "IN_PROGRESS"
	ReportCompleted  ReportStatus = "COMPLETED"
	ReportFailed     ReportStatus = "FAILED"
	ReportRetrying   ReportStatus = "RETRYING"
)

// Settled reports whether the report reached a terminal state.
func (s ReportStatus) Settled() bool {
	return s == ReportCompleted || s == ReportFailed
}

// AgentReport is one agent's opinion on one request. (RequestID, Agent) is unique.
type AgentReport struct {
	ID         string         `json:"id"`
	RequestID  RequestID      `json:"request_id"`
	Agent      string         `json:"agent"`
	Content    string         `json:"content"`
	Payload    map[string]any `json:"structured_data"`
	Score      *int           `json:"score,omitempty"`
	Confidence float64        `json:"confidence"`
	Duration   time.Duration  `json:"execution_time"`
	Backend    string         `json:"backend,omitempty"`
	Model      string         `json:"model,omitempty"`
	TokenUsage int            `json:"token_usage"`
	Cost       float64        `json:"cost_estimate"`
	Status     ReportStatus   `json:"status"`
	Error      string         `json:"error_message,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// FinalReport is the synthesized outcome, one per request.
type FinalReport struct {
	ID               string         `json:"id"`
	RequestID        RequestID      `json:"request_id"`
	ExecutiveSummary string         `json:"executive_summary"`
	KeyFindings      []string       `json:"key_findings"`
	Recommendations  []string       `json:"recommendations"`
	MajorRisks       []string       `json:"major_risks"`
	SubScores        map[string]int `json:"sub_scores"`
	OverallScore     int            `json:"overall_score"`
	Recommendation   Recommendation `json:"final_recommendation"`
	Confidence       float64        `json:"confidence"`
	GeneratedBy      string         `json:"generated_by_agent"`
	AgentsCompleted  int            `json:"agents_completed"`
	AgentsFailed     int            `json:"agents_failed"`
	TotalCost        float64        `json:"total_cost"`
	ArtifactURL      string         `json:"artifact_url,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TaskStatus of an ExecutionTask audit row
type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskStarted TaskStatus = "STARTED"
	TaskSuccess TaskStatus = "SUCCESS"
	TaskFailure TaskStatus = "FAILURE"
	TaskRetry   TaskStatus = "RETRY"
	TaskRevoked TaskStatus = "REVOKED"
)

// ExecutionTask records what a task did. It never drives control flow.
// Agent is empty for the orchestration/synthesis task.
type ExecutionTask struct {
	ID          string     `json:"task_id"`
	RequestID   RequestID  `json:"request_id"`
	Agent       string     `json:"agent,omitempty"`
	ReportID    string     `json:"report_id,omitempty"`
	Status      TaskStatus `json:"status"`
	Attempt     int        `json:"attempt"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error_message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Summary is the dashboard rollup over all requests.
type Summary struct {
	Total        int            `json:"total"`
	ByStatus     map[Status]int `json:"by_status"`
	AverageScore *float64       `json:"average_score,omitempty"`
}
