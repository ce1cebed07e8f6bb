package verify

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/generator"
	"veristat/internal/model"
)

// minFormulaPercentage 数据区域公式占比下限（百分数），与质量门同一底线：
// 覆盖率不足意味着字面值灌注，单项检查全绿也判 FAIL
const minFormulaPercentage = 50.0

// Status 验证状态
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	// StatusNotVerifiable 生成阶段已判定输入不合法，产物只有错误标记
	StatusNotVerifiable Status = "NOT_VERIFIABLE"
)

// excelErrorValues 公式求值错误值。错误值意味着公式本身坏了，
// 与数值偏差分开报告。
var excelErrorValues = map[string]bool{
	"#REF!": true, "#DIV/0!": true, "#VALUE!": true, "#NAME?": true,
	"#N/A": true, "#NULL!": true, "#NUM!": true,
}

// IsErrorValue 判断单元格实际值是否为公式错误值
func IsErrorValue(v string) bool {
	return excelErrorValues[strings.TrimSpace(v)]
}

// Check 单个探针的比对结果
type Check struct {
	Name     string              `json:"name"`
	Kind     generator.ProbeKind `json:"kind"`
	Cell     string              `json:"cell"`
	Expected float64             `json:"expected"`
	Actual   string              `json:"actual"`
	Passed   bool                `json:"passed"`
	Note     string              `json:"note,omitempty"`
}

// Result 单个 sheet 的验证结果
type Result struct {
	Sheet    string  `json:"sheet"`
	TaskID   string  `json:"task_id"`
	Status   Status  `json:"status"`
	Checks   []Check `json:"checks,omitempty"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Coverage float64 `json:"coverage_pct"`     // 数据区域公式占比（百分数）
	Reason   string  `json:"reason,omitempty"` // 整体 FAIL/不可验证的原因
}

// Summary 一行人读摘要
func (r *Result) Summary() string {
	if r.Reason != "" {
		return fmt.Sprintf("%s [%s]: %s (%s)", r.Sheet, r.TaskID, r.Status, r.Reason)
	}
	return fmt.Sprintf("%s [%s]: %s (%d/%d 通过)",
		r.Sheet, r.TaskID, r.Status, r.Passed, r.Passed+r.Failed)
}

// Harness 验证台：持有数据集画像，对重算后的产物逐探针比对。
type Harness struct {
	profile *dataset.Profile
}

// NewHarness 创建验证台
func NewHarness(profile *dataset.Profile) *Harness {
	return &Harness{profile: profile}
}

// VerifyArtifact 打开产物文件并验证全部 sheet。
// 文件不存在或打不开返回 ArtifactError。
func (h *Harness) VerifyArtifact(path string, sheets []*generator.Sheet) ([]*Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &model.ArtifactError{Path: path, Reason: err.Error()}
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &model.ArtifactError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	results := make([]*Result, 0, len(sheets))
	for _, s := range sheets {
		r, err := h.VerifySheet(f, s)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// VerifySheet 验证单个 sheet。
// 目标 sheet 不存在时整体判 FAIL，不做任何单项检查；
// 带错误标记的 sheet 判为不可验证。
func (h *Harness) VerifySheet(f *excelize.File, s *generator.Sheet) (*Result, error) {
	r := &Result{Sheet: s.Name, TaskID: s.TaskID}

	if s.ErrorMarker != "" {
		r.Status = StatusNotVerifiable
		r.Reason = s.ErrorMarker
		return r, nil
	}
	if idx, err := f.GetSheetIndex(s.Name); err != nil || idx < 0 {
		r.Status = StatusFail
		r.Reason = fmt.Sprintf("目标 sheet %q 不存在", s.Name)
		return r, nil
	}

	for i := range s.Probes {
		probe := &s.Probes[i]
		expected, err := GroundTruth(h.profile, probe)
		if err != nil {
			return nil, fmt.Errorf("计算地面真值失败 (%s/%s): %w", s.Name, probe.Name, err)
		}
		actual, err := f.GetCellValue(s.Name, probe.Cell)
		if err != nil {
			return nil, fmt.Errorf("读取 %s!%s 失败: %w", s.Name, probe.Cell, err)
		}
		c := compare(probe, expected, actual)
		if c.Passed {
			r.Passed++
		} else {
			r.Failed++
		}
		r.Checks = append(r.Checks, c)
	}

	if r.Failed > 0 {
		r.Status = StatusFail
	} else {
		r.Status = StatusPass
	}

	coverage, scanned, err := regionCoverage(f, s)
	if err != nil {
		return nil, err
	}
	r.Coverage = coverage
	if scanned && coverage < minFormulaPercentage {
		r.Status = StatusFail
		r.Reason = fmt.Sprintf("公式占比 %.1f%% 低于下限 %.1f%%", coverage, minFormulaPercentage)
	}
	return r, nil
}

// regionCoverage 数据区域内公式单元格占非空单元格的比例。
// 区域为空或没有任何非空单元格时不参与判定。
func regionCoverage(f *excelize.File, s *generator.Sheet) (float64, bool, error) {
	region := s.DataRegion
	if region.Empty() {
		return 0, false, nil
	}
	formulas, values := 0, 0
	for row := region.FirstRow; row <= region.LastRow; row++ {
		for col := region.FirstCol; col <= region.LastCol; col++ {
			cell := formula.CellName(col, row)
			fml, err := f.GetCellFormula(s.Name, cell)
			if err != nil {
				return 0, false, fmt.Errorf("读取公式 %s!%s 失败: %w", s.Name, cell, err)
			}
			if fml != "" {
				formulas++
				continue
			}
			val, err := f.GetCellValue(s.Name, cell)
			if err != nil {
				return 0, false, fmt.Errorf("读取单元格 %s!%s 失败: %w", s.Name, cell, err)
			}
			if strings.TrimSpace(val) != "" {
				values++
			}
		}
	}
	total := formulas + values
	if total == 0 {
		return 0, false, nil
	}
	return 100 * float64(formulas) / float64(total), true, nil
}

// compare 单探针比对。期望为 NaN（统计量无定义）时要求产物守卫为空串。
func compare(probe *generator.Probe, expected float64, actual string) Check {
	c := Check{
		Name:     probe.Name,
		Kind:     probe.Kind,
		Cell:     probe.Cell,
		Expected: expected,
		Actual:   actual,
	}
	trimmed := strings.TrimSpace(actual)

	if IsErrorValue(trimmed) {
		c.Note = "公式求值为错误值"
		return c
	}
	if math.IsNaN(expected) {
		if trimmed == "" {
			c.Passed = true
		} else {
			c.Note = "统计量无定义，期望空值"
		}
		return c
	}
	if trimmed == "" {
		c.Note = "期望数值，实际为空"
		return c
	}

	got, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		c.Note = "实际值不是数值"
		return c
	}
	tol := ToleranceFor(probe.Kind)
	if tol.Within(expected, got) {
		c.Passed = true
		return c
	}
	c.Note = fmt.Sprintf("偏差超出容差: 期望 %g，实际 %g", expected, got)
	return c
}
