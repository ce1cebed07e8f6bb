// Package qc 质量门：在验证之外对产物做结构性检查。
// 公式覆盖率是硬性底线——数据区域内的非空单元格必须以公式为主，
// 出现字面值灌注（公式占比不足）直接拒绝产物。
package qc

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"veristat/internal/formula"
	"veristat/internal/generator"
)

// MinFormulaPercentage 数据区域公式占比下限（百分数）
const MinFormulaPercentage = 50.0

// Metrics 数据区域扫描指标
type Metrics struct {
	FormulaCells int     `json:"formula_cells"`
	ValueCells   int     `json:"value_cells"` // 非空且非公式
	CoveragePct  float64 `json:"coverage_pct"`
	ErrorCells   int     `json:"error_cells"`
}

// Verdict 单个 sheet 的质量判定。
// 硬性失败任意一条即拒绝；警告不影响通过与否，随判定一并存档。
type Verdict struct {
	ID            string   `json:"id"`
	Sheet         string   `json:"sheet"`
	TaskID        string   `json:"task_id"`
	Passed        bool     `json:"passed"`
	NotVerifiable bool     `json:"not_verifiable"`
	HardFailures  []string `json:"hard_failures,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Metrics       Metrics  `json:"metrics"`
}

// Summary 一行人读摘要
func (v *Verdict) Summary() string {
	switch {
	case v.NotVerifiable:
		return fmt.Sprintf("%s [%s]: 不可验证", v.Sheet, v.TaskID)
	case v.Passed:
		return fmt.Sprintf("%s [%s]: 通过 (公式占比 %.1f%%, 警告 %d)",
			v.Sheet, v.TaskID, v.Metrics.CoveragePct, len(v.Warnings))
	default:
		return fmt.Sprintf("%s [%s]: 拒绝 (%s)",
			v.Sheet, v.TaskID, strings.Join(v.HardFailures, "; "))
	}
}

// Gate 质量门
type Gate struct {
	minCoverage float64
}

// NewGate 创建质量门；minCoverage <= 0 时使用默认下限
func NewGate(minCoverage float64) *Gate {
	if minCoverage <= 0 {
		minCoverage = MinFormulaPercentage
	}
	return &Gate{minCoverage: minCoverage}
}

// Inspect 检查单个 sheet。
// 检查顺序短路：sheet 缺失即拒绝，不再扫描区域。
func (g *Gate) Inspect(f *excelize.File, s *generator.Sheet) (*Verdict, error) {
	v := &Verdict{
		ID:     uuid.NewString(),
		Sheet:  s.Name,
		TaskID: s.TaskID,
	}

	if s.ErrorMarker != "" {
		v.NotVerifiable = true
		v.HardFailures = append(v.HardFailures, "生成阶段输入不合法: "+s.ErrorMarker)
		return v, nil
	}

	if idx, err := f.GetSheetIndex(s.Name); err != nil || idx < 0 {
		v.HardFailures = append(v.HardFailures, fmt.Sprintf("目标 sheet %q 不存在", s.Name))
		return v, nil
	}

	if s.DataRegion.Empty() {
		v.HardFailures = append(v.HardFailures, "数据区域为空")
		return v, nil
	}

	if err := g.scanRegion(f, s, v); err != nil {
		return nil, err
	}

	if v.Metrics.CoveragePct < g.minCoverage {
		v.HardFailures = append(v.HardFailures, fmt.Sprintf(
			"公式占比 %.1f%% 低于下限 %.1f%%", v.Metrics.CoveragePct, g.minCoverage))
	}

	v.Passed = len(v.HardFailures) == 0
	return v, nil
}

func (g *Gate) scanRegion(f *excelize.File, s *generator.Sheet, v *Verdict) error {
	region := s.DataRegion
	for row := region.FirstRow; row <= region.LastRow; row++ {
		for col := region.FirstCol; col <= region.LastCol; col++ {
			cell := formula.CellName(col, row)
			fml, err := f.GetCellFormula(s.Name, cell)
			if err != nil {
				return fmt.Errorf("读取公式 %s!%s 失败: %w", s.Name, cell, err)
			}
			val, err := f.GetCellValue(s.Name, cell)
			if err != nil {
				return fmt.Errorf("读取单元格 %s!%s 失败: %w", s.Name, cell, err)
			}

			if fml != "" {
				v.Metrics.FormulaCells++
				g.checkCrossSheet(f, s, cell, fml, v)
			} else if strings.TrimSpace(val) != "" {
				v.Metrics.ValueCells++
			}
			if excelErr(val) {
				v.Metrics.ErrorCells++
				v.Warnings = append(v.Warnings, fmt.Sprintf("%s 求值为错误值 %s", cell, strings.TrimSpace(val)))
			}
		}
	}

	total := v.Metrics.FormulaCells + v.Metrics.ValueCells
	if total > 0 {
		v.Metrics.CoveragePct = 100 * float64(v.Metrics.FormulaCells) / float64(total)
	}
	return nil
}

// checkCrossSheet 公式引用数据 sheet 之外的其他 sheet 时给出警告。
// 分析 sheet 之间的引用会让结果依赖 sheet 生成顺序，不拒绝但要暴露；
// 引用的 sheet 在工作簿里不存在时，公式打开即是 #REF!，单独报出。
func (g *Gate) checkCrossSheet(f *excelize.File, s *generator.Sheet, cell, fml string, v *Verdict) {
	for _, ref := range sheetRefs(fml) {
		if ref == generator.RawSheetName || ref == generator.CleanedSheetName || ref == s.Name {
			continue
		}
		if idx, err := f.GetSheetIndex(ref); err != nil || idx < 0 {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s 引用了不存在的 sheet %q", cell, ref))
			continue
		}
		v.Warnings = append(v.Warnings, fmt.Sprintf("%s 引用了其他分析 sheet %q", cell, ref))
	}
}

// sheetRefs 提取公式中 'Sheet'! 与 Sheet! 形式引用的 sheet 名
func sheetRefs(fml string) []string {
	var refs []string
	for i := 0; i < len(fml); i++ {
		if fml[i] != '!' {
			continue
		}
		if i > 0 && fml[i-1] == '\'' {
			// 引号形式：向前找配对的起始单引号，转义的双引号对整体跳过
			for j := i - 2; j >= 0; j-- {
				if fml[j] != '\'' {
					continue
				}
				if j > 0 && fml[j-1] == '\'' {
					j--
					continue
				}
				refs = append(refs, strings.ReplaceAll(fml[j+1:i-1], "''", "'"))
				break
			}
			continue
		}
		// 裸名形式：向前收集标识符字符
		j := i
		for j > 0 && isSheetNameChar(fml[j-1]) {
			j--
		}
		if j < i {
			refs = append(refs, fml[j:i])
		}
	}
	return refs
}

func isSheetNameChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

func excelErr(v string) bool {
	switch strings.TrimSpace(v) {
	case "#REF!", "#DIV/0!", "#VALUE!", "#NAME?", "#N/A", "#NULL!", "#NUM!":
		return true
	}
	return false
}
