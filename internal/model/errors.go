package model

import "fmt"

// InputError 任务规格相对数据集不合法（未知列、分组水平不足、量表条目不足等）。
// 生成阶段遇到 InputError 时立即停止，写入错误标记，任务标记为不可验证。
type InputError struct {
	TaskID string
	Reason string
}

func (e *InputError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("任务 %s 输入不合法: %s", e.TaskID, e.Reason)
	}
	return "任务输入不合法: " + e.Reason
}

// NewInputError 创建输入错误
func NewInputError(taskID, format string, args ...any) *InputError {
	return &InputError{TaskID: taskID, Reason: fmt.Sprintf(format, args...)}
}

// ArtifactError 验证阶段产物缺失（工作簿文件或目标 sheet 不存在）。
// 验证结果整体判 FAIL，不做任何单项检查。
type ArtifactError struct {
	Path   string
	Sheet  string
	Reason string
}

func (e *ArtifactError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("产物缺失: %s (sheet=%s): %s", e.Path, e.Sheet, e.Reason)
	}
	return fmt.Sprintf("产物缺失: %s: %s", e.Path, e.Reason)
}

// EngineError 外部重算引擎失败（进程错误或超时）。
// 只有在重试一次之后仍然失败才会以 EngineError 上抛，
// 与数值偏差（ComputationDivergence，属于检查数据而非错误值）严格区分。
type EngineError struct {
	Attempts int
	Err      error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("重算引擎失败 (尝试 %d 次): %v", e.Attempts, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
