package analysis

import (
	"time"

	domain "github.com/bryanwahyu/bizpanel/internal/domain/analysis"
)

// Recorder receives orchestration events for metrics.
type Recorder interface {
	AnalysisSubmitted()
	AnalysisFinished(status domain.Status)
	AgentStarted(agent string)
	AgentFinished(agent string, status domain.ReportStatus, took time.Duration)
	AgentRetried(agent string)
}

type nopRecorder struct{}

func (nopRecorder) AnalysisSubmitted() {}
func (nopRecorder) AnalysisFinished(domain.Status) {}
func (nopRecorder) AgentStarted(string) {}
func (nopRecorder) AgentFinished(string, domain.ReportStatus, time.Duration) {}
func (nopRecorder) AgentRetried(string) {}
