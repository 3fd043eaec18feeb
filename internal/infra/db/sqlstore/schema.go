package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{version: 1, stmts: []string{
		`CREATE TABLE IF NOT EXISTS analysis_requests (
  id VARCHAR(36) PRIMARY KEY,
  title VARCHAR(255) NOT NULL,
  description %[1]s NOT NULL,
  category VARCHAR(32) NOT NULL,
  target_segment VARCHAR(255) NOT NULL DEFAULT '',
  estimated_budget %[2]s NULL,
  status VARCHAR(16) NOT NULL,
  overall_score INTEGER NULL,
  recommendation VARCHAR(32) NOT NULL DEFAULT '',
  confidence %[2]s NULL,
  failure_reason %[1]s NULL,
  submitted_at %[3]s NOT NULL,
  updated_at %[3]s NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS agent_reports (
  id VARCHAR(36) PRIMARY KEY,
  request_id VARCHAR(36) NOT NULL,
  agent_type VARCHAR(32) NOT NULL,
  content %[1]s NULL,
  structured_data %[1]s NULL,
  score INTEGER NULL,
  confidence %[2]s NOT NULL DEFAULT 0,
  execution_ms BIGINT NOT NULL DEFAULT 0,
  backend VARCHAR(64) NOT NULL DEFAULT '',
  model VARCHAR(128) NOT NULL DEFAULT '',
  token_usage INTEGER NOT NULL DEFAULT 0,
  cost_estimate %[2]s NOT NULL DEFAULT 0,
  status VARCHAR(16) NOT NULL,
  error_message %[1]s NULL,
  created_at %[3]s NOT NULL,
  updated_at %[3]s NOT NULL,
  CONSTRAINT uq_agent_reports_request_agent UNIQUE (request_id, agent_type),
  CONSTRAINT fk_agent_reports_request FOREIGN KEY (request_id) REFERENCES analysis_requests (id) ON DELETE CASCADE
)`,
		`CREATE TABLE IF NOT EXISTS final_reports (
  id VARCHAR(36) PRIMARY KEY,
  request_id VARCHAR(36) NOT NULL,
  executive_summary %[1]s NULL,
  key_findings %[1]s NULL,
  recommendations %[1]s NULL,
  major_risks %[1]s NULL,
  sub_scores %[1]s NULL,
  overall_score INTEGER NOT NULL,
  final_recommendation VARCHAR(32) NOT NULL,
  confidence %[2]s NOT NULL DEFAULT 0,
  generated_by VARCHAR(32) NOT NULL,
  agents_completed INTEGER NOT NULL DEFAULT 0,
  agents_failed INTEGER NOT NULL DEFAULT 0,
  total_cost %[2]s NOT NULL DEFAULT 0,
  artifact_url VARCHAR(512) NOT NULL DEFAULT '',
  created_at %[3]s NOT NULL,
  updated_at %[3]s NOT NULL,
  CONSTRAINT uq_final_reports_request UNIQUE (request_id),
  CONSTRAINT fk_final_reports_request FOREIGN KEY (request_id) REFERENCES analysis_requests (id) ON DELETE CASCADE
)`,
		`CREATE TABLE IF NOT EXISTS execution_tasks (
  id VARCHAR(36) PRIMARY KEY,
  request_id VARCHAR(36) NOT NULL,
  agent_type VARCHAR(32) NOT NULL DEFAULT '',
  report_id VARCHAR(36) NOT NULL DEFAULT '',
  status VARCHAR(16) NOT NULL,
  attempt INTEGER NOT NULL DEFAULT 0,
  result %[1]s NULL,
  error_message %[1]s NULL,
  created_at %[3]s NOT NULL,
  started_at %[3]s NULL,
  completed_at %[3]s NULL,
  CONSTRAINT fk_execution_tasks_request FOREIGN KEY (request_id) REFERENCES analysis_requests (id) ON DELETE CASCADE
)`,
	}},
	{version: 2, stmts: []string{
		`ALTER TABLE analysis_requests ADD COLUMN run_id VARCHAR(36) NOT NULL DEFAULT ''`,
	}},
}

// Migrate brings the schema up to date. Applied versions are tracked in
// schema_version so re-running is a no-op.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	types := d.types()
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at %[3]s NOT NULL
)`, types...)); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := db.ExecContext(ctx, fmt.Sprintf(stmt, types...)); err != nil {
				return fmt.Errorf("migration %d: %w", m.version, err)
			}
		}
		if _, err := db.ExecContext(ctx, d.rebind("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)"), m.version, time.Now().UTC()); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}
