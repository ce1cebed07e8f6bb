package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AnalysisPlan 完整分析计划（规划方产出，执行前校验）
type AnalysisPlan struct {
	SessionID         string     `json:"session_id" yaml:"session_id"`
	TotalVariables    int        `json:"total_variables" yaml:"total_variables"`
	TotalObservations int        `json:"total_observations" yaml:"total_observations"`
	Tasks             []TaskSpec `json:"tasks" yaml:"tasks"`
}

// PlanValidation 计划校验结果
type PlanValidation struct {
	Valid     bool
	Errors    []string
	Warnings  []string
	TaskCount int
}

// LoadPlan 从 YAML/JSON 文件加载分析计划（YAML 是 JSON 的超集，共用一个解码器）
func LoadPlan(path string) (*AnalysisPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取计划文件失败: %w", err)
	}
	var plan AnalysisPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("解析计划文件失败: %w", err)
	}
	return &plan, nil
}

// Validate 对计划做确定性校验：任务形态、ID/sheet 唯一性、列引用存在性。
// availableColumns 为数据集实际列名。
func (p *AnalysisPlan) Validate(availableColumns []string) PlanValidation {
	v := PlanValidation{TaskCount: len(p.Tasks)}
	known := make(map[string]bool, len(availableColumns))
	for _, c := range availableColumns {
		known[c] = true
	}

	seenIDs := make(map[string]bool)
	seenSheets := make(map[string]bool)
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if err := t.CheckShape(); err != nil {
			v.Errors = append(v.Errors, err.Error())
			continue
		}
		if seenIDs[t.ID] {
			v.Errors = append(v.Errors, fmt.Sprintf("任务 ID 重复: %s", t.ID))
		}
		seenIDs[t.ID] = true
		if seenSheets[t.OutputSheet] {
			v.Errors = append(v.Errors, fmt.Sprintf("输出 sheet 名重复: %s", t.OutputSheet))
		}
		seenSheets[t.OutputSheet] = true

		for _, col := range t.Columns.ColumnNames {
			if !known[col] {
				v.Warnings = append(v.Warnings, fmt.Sprintf("任务 %s: 数据集中不存在列 %q", t.ID, col))
			}
		}
		if t.GroupBy != "" && !known[t.GroupBy] {
			v.Errors = append(v.Errors, fmt.Sprintf("任务 %s: 分组列 %q 不存在", t.ID, t.GroupBy))
		}
		for _, item := range t.ScaleItems {
			if !known[item] {
				v.Errors = append(v.Errors, fmt.Sprintf("任务 %s: 量表条目 %q 不存在", t.ID, item))
			}
		}
	}

	v.Valid = len(v.Errors) == 0
	return v
}
