package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"veristat/internal/verify"
)

// ResultRecord verification_results 表的一行
type ResultRecord struct {
	ID          string
	SessionID   string
	TaskID      string
	SheetName   string
	Status      verify.Status
	Passed      int
	Failed      int
	CoveragePct float64
	Reason      string
	Checks      []verify.Check
	CreatedAt   time.Time
}

// SaveResult 追加一条验证结果，逐项检查以 JSON 存档
func (s *Store) SaveResult(sessionID string, r *verify.Result) error {
	checks, err := json.Marshal(r.Checks)
	if err != nil {
		return fmt.Errorf("failed to marshal checks: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO verification_results (
			id, session_id, task_id, sheet_name, status, passed, failed, coverage_pct, reason, checks
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, r.TaskID, r.Sheet,
		string(r.Status), r.Passed, r.Failed, r.Coverage, r.Reason, string(checks))
	if err != nil {
		return fmt.Errorf("failed to insert verification result: %w", err)
	}
	return nil
}

// ListResults 按会话查询全部验证结果（按时间升序）
func (s *Store) ListResults(sessionID string) ([]*ResultRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, task_id, sheet_name, status, passed, failed, coverage_pct, reason, checks, created_at
		FROM verification_results
		WHERE session_id = ?
		ORDER BY created_at, task_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification results: %w", err)
	}
	defer rows.Close()

	var out []*ResultRecord
	for rows.Next() {
		var r ResultRecord
		var status, checks string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.TaskID, &r.SheetName,
			&status, &r.Passed, &r.Failed, &r.CoveragePct, &r.Reason, &checks, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verification result: %w", err)
		}
		r.Status = verify.Status(status)
		if err := json.Unmarshal([]byte(checks), &r.Checks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checks: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
