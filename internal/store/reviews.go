package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"veristat/internal/model"
)

// ReviewRecord review_decisions 表的一行
type ReviewRecord struct {
	ID        string
	SessionID string
	TaskID    string
	Decision  model.ReviewDecision
	Feedback  string
	CreatedAt time.Time
}

// SaveReview 追加一条评审结论。非法结论标签直接拒绝。
func (s *Store) SaveReview(sessionID string, r *model.ReviewOutcome) error {
	if !r.Decision.Valid() {
		return fmt.Errorf("invalid review decision: %q", r.Decision)
	}
	_, err := s.db.Exec(`
		INSERT INTO review_decisions (id, session_id, task_id, decision, feedback)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, r.TaskID, string(r.Decision), r.Feedback)
	if err != nil {
		return fmt.Errorf("failed to insert review decision: %w", err)
	}
	return nil
}

// ListReviews 按会话查询全部评审结论（按时间升序）
func (s *Store) ListReviews(sessionID string) ([]*ReviewRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, task_id, decision, feedback, created_at
		FROM review_decisions
		WHERE session_id = ?
		ORDER BY created_at, task_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query review decisions: %w", err)
	}
	defer rows.Close()

	var out []*ReviewRecord
	for rows.Next() {
		var r ReviewRecord
		var decision string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.TaskID, &decision, &r.Feedback, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review decision: %w", err)
		}
		r.Decision = model.ReviewDecision(decision)
		out = append(out, &r)
	}
	return out, rows.Err()
}
