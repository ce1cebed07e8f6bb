package store

import (
	"encoding/json"
	"fmt"
	"time"

	"veristat/internal/qc"
)

// VerdictRecord qc_verdicts 表的一行
type VerdictRecord struct {
	ID            string
	SessionID     string
	TaskID        string
	SheetName     string
	Passed        bool
	NotVerifiable bool
	FormulaCells  int
	ValueCells    int
	CoveragePct   float64
	ErrorCells    int
	HardFailures  []string
	Warnings      []string
	CreatedAt     time.Time
}

// SaveVerdict 追加一条质量判定
func (s *Store) SaveVerdict(sessionID string, v *qc.Verdict) error {
	failures, err := json.Marshal(v.HardFailures)
	if err != nil {
		return fmt.Errorf("failed to marshal hard failures: %w", err)
	}
	warnings, err := json.Marshal(v.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO qc_verdicts (
			id, session_id, task_id, sheet_name, passed, not_verifiable,
			formula_cells, value_cells, coverage_pct, error_cells,
			hard_failures, warnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, sessionID, v.TaskID, v.Sheet, boolInt(v.Passed), boolInt(v.NotVerifiable),
		v.Metrics.FormulaCells, v.Metrics.ValueCells, v.Metrics.CoveragePct, v.Metrics.ErrorCells,
		string(failures), string(warnings))
	if err != nil {
		return fmt.Errorf("failed to insert verdict: %w", err)
	}
	return nil
}

// ListVerdicts 按会话查询全部判定（按时间升序）
func (s *Store) ListVerdicts(sessionID string) ([]*VerdictRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, task_id, sheet_name, passed, not_verifiable,
		       formula_cells, value_cells, coverage_pct, error_cells,
		       hard_failures, warnings, created_at
		FROM qc_verdicts
		WHERE session_id = ?
		ORDER BY created_at, task_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var out []*VerdictRecord
	for rows.Next() {
		var r VerdictRecord
		var passed, notVerifiable int
		var failures, warnings string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.TaskID, &r.SheetName,
			&passed, &notVerifiable,
			&r.FormulaCells, &r.ValueCells, &r.CoveragePct, &r.ErrorCells,
			&failures, &warnings, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		r.Passed = passed != 0
		r.NotVerifiable = notVerifiable != 0
		if err := json.Unmarshal([]byte(failures), &r.HardFailures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hard failures: %w", err)
		}
		if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
