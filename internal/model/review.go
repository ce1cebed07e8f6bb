package model

import "time"

// ReviewDecision 叙事评审方（人工或 LLM）返回的结论标签。
// 本系统只接受并记录结论，不解释反馈文本。
type ReviewDecision string

const (
	DecisionApprove     ReviewDecision = "approve"
	DecisionReject      ReviewDecision = "reject"
	DecisionConditional ReviewDecision = "conditional"
	DecisionHalt        ReviewDecision = "halt"
)

// Valid 判断结论标签是否合法
func (d ReviewDecision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionConditional, DecisionHalt:
		return true
	}
	return false
}

// ReviewOutcome 一次评审的结果记录
type ReviewOutcome struct {
	TaskID    string         `json:"task_id"`
	Decision  ReviewDecision `json:"decision"`
	Feedback  string         `json:"feedback"`
	CreatedAt time.Time      `json:"created_at"`
}
