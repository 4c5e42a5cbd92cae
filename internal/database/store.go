package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/querylens/querylens/internal/analyze"
)

// Store archives analysis runs and their issues
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// RunRecord is a persisted analysis pass
type RunRecord struct {
	ID         string    `json:"id"`
	TraceSize  int       `json:"trace_size"`
	IssueCount int       `json:"issue_count"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// IssueRecord is a persisted issue summary
type IssueRecord struct {
	ID             string `json:"id"`
	RunID          string `json:"run_id"`
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AffectedCount  int    `json:"affected_count"`
	DuplicateCount int    `json:"duplicate_count"`
}

// issuePayload holds the parts of an issue archived as JSON
type issuePayload struct {
	Suggestion *analyze.Suggestion `json:"suggestion,omitempty"`
	Details    map[string]any      `json:"details,omitempty"`
	Backtrace  []string            `json:"backtrace,omitempty"`
}

// SaveRun archives a run and all of its issues in one transaction
func (s *Store) SaveRun(traceSize int, issues []analyze.Issue, startedAt, finishedAt time.Time) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runID := uuid.NewString()
	_, err = tx.Exec(`
		INSERT INTO app_analysis_runs (id, trace_size, issue_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?)
	`, runID, traceSize, len(issues), startedAt, finishedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i := range issues {
		if err := insertIssue(tx, runID, &issues[i]); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

func insertIssue(tx *sql.Tx, runID string, issue *analyze.Issue) error {
	payload := issuePayload{
		Suggestion: issue.Suggestion,
		Details:    issue.Details,
	}
	for _, frame := range issue.Backtrace {
		payload.Backtrace = append(payload.Backtrace, frame.String())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal issue payload: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO app_issues (
			id, run_id, type, severity, title, description,
			payload, affected_count, duplicate_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), runID, issue.Type, issue.Severity.String(),
		issue.Title, issue.Description, raw,
		len(issue.AffectedQueries), len(issue.Duplicates))
	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, trace_size, issue_count, started_at, finished_at
		FROM app_analysis_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.TraceSize, &r.IssueCount, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListIssues returns the issues archived for a run
func (s *Store) ListIssues(runID string) ([]IssueRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, type, severity, title, description, affected_count, duplicate_count
		FROM app_issues
		WHERE run_id = ?
		ORDER BY severity DESC, type
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var issues []IssueRecord
	for rows.Next() {
		var rec IssueRecord
		err := rows.Scan(&rec.ID, &rec.RunID, &rec.Type, &rec.Severity,
			&rec.Title, &rec.Description, &rec.AffectedCount, &rec.DuplicateCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, rec)
	}
	return issues, rows.Err()
}
