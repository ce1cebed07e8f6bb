package model

import (
	"fmt"
	"regexp"
)

// TaskType 分析任务类型（封闭集合，生成器按类型精确分派）
type TaskType string

const (
	TaskDataAudit        TaskType = "data_audit"
	TaskDataDictionary   TaskType = "data_dictionary"
	TaskMissingData      TaskType = "missing_data"
	TaskDescriptiveStats TaskType = "descriptive_stats"
	TaskFrequencyTables  TaskType = "frequency_tables"
	TaskNormalityCheck   TaskType = "normality_check"
	TaskCorrelationMatrix TaskType = "correlation_matrix"
	TaskReliabilityAlpha TaskType = "reliability_alpha"
	TaskGroupComparison  TaskType = "group_comparison"
	TaskCrossTabulation  TaskType = "cross_tabulation"
	TaskEffectSizes      TaskType = "effect_sizes"
	TaskSummaryDashboard TaskType = "summary_dashboard"
)

// AllTaskTypes 全部受支持的任务类型
var AllTaskTypes = []TaskType{
	TaskDataAudit, TaskDataDictionary, TaskMissingData,
	TaskDescriptiveStats, TaskFrequencyTables, TaskNormalityCheck,
	TaskCorrelationMatrix, TaskReliabilityAlpha, TaskGroupComparison,
	TaskCrossTabulation, TaskEffectSizes, TaskSummaryDashboard,
}

// Valid 判断任务类型是否受支持
func (t TaskType) Valid() bool {
	for _, k := range AllTaskTypes {
		if t == k {
			return true
		}
	}
	return false
}

// TaskPhase 分析阶段（按执行顺序）
type TaskPhase string

const (
	PhaseDataValidation TaskPhase = "1_Data_Validation"
	PhaseExploratory    TaskPhase = "2_Exploratory"
	PhaseDescriptive    TaskPhase = "3_Descriptive"
	PhaseInferential    TaskPhase = "4_Inferential"
	PhaseReliability    TaskPhase = "5_Reliability"
	PhaseAdvanced       TaskPhase = "6_Advanced"
	PhaseSynthesis      TaskPhase = "7_Synthesis"
	PhaseDeliverables   TaskPhase = "8_Deliverables"
)

// ColumnSelector 目标列选择方式
type ColumnSelector struct {
	ColumnNames []string `json:"column_names" yaml:"column_names"`
	ColumnType  string   `json:"column_type" yaml:"column_type"` // numeric / categorical / all
	MaxColumns  int      `json:"max_columns" yaml:"max_columns"`
}

// TaskSpec 单个分析任务规格。
// 由规划方产出，接受后不可变；生成前必须对数据集画像做合法性校验。
type TaskSpec struct {
	ID          string         `json:"id" yaml:"id"`
	Phase       TaskPhase      `json:"phase" yaml:"phase"`
	Type        TaskType       `json:"task_type" yaml:"task_type"`
	Name        string         `json:"name" yaml:"name"`
	Objective   string         `json:"objective" yaml:"objective"`
	OutputSheet string         `json:"output_sheet" yaml:"output_sheet"`
	Columns     ColumnSelector `json:"columns" yaml:"columns"`
	GroupBy     string         `json:"group_by,omitempty" yaml:"group_by,omitempty"`
	ScaleItems  []string       `json:"scale_items,omitempty" yaml:"scale_items,omitempty"`
}

var (
	taskIDPattern = regexp.MustCompile(`^\d+\.\d+$`)
	sheetPattern  = regexp.MustCompile(`^[A-Z0-9_]+$`)
)

// CheckShape 任务自身形态校验（不依赖数据集）。
// 列存在性、分组水平数等需要数据集画像的校验由生成器完成。
func (t *TaskSpec) CheckShape() error {
	if !taskIDPattern.MatchString(t.ID) {
		return NewInputError(t.ID, "任务 ID 必须形如 N.N: %q", t.ID)
	}
	if !t.Type.Valid() {
		return NewInputError(t.ID, "未知任务类型: %q", t.Type)
	}
	if t.OutputSheet == "" || len(t.OutputSheet) > 31 {
		return NewInputError(t.ID, "输出 sheet 名长度必须为 1~31: %q", t.OutputSheet)
	}
	if !sheetPattern.MatchString(t.OutputSheet) {
		return NewInputError(t.ID, "输出 sheet 名仅允许大写字母、数字和下划线: %q", t.OutputSheet)
	}
	if t.Type == TaskReliabilityAlpha && len(t.ScaleItems) < 2 {
		return NewInputError(t.ID, "信度分析至少需要 2 个量表条目，当前 %d 个", len(t.ScaleItems))
	}
	return nil
}

// String 便于日志输出
func (t *TaskSpec) String() string {
	return fmt.Sprintf("[%s] %s -> %s", t.ID, t.Type, t.OutputSheet)
}
