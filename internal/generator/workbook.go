package generator

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"veristat/internal/dataset"
	"veristat/internal/formula"
)

// 空值记号数组常量（小写），清洗公式里用 MATCH 命中即视为缺失。
// 与画像的判定口径一致。
var cleanNullTokens = []string{"na", "n/a", "null", "none", "nan", "-"}

// Workbook 产物工作簿装配器：
// 原始数据 sheet 是产物中唯一的字面值数据区域，写入后加保护；
// 清洗 sheet 逐格用公式从原始 sheet 推出，分析 sheet 只引用清洗 sheet。
type Workbook struct {
	g *Generator
	f *excelize.File
}

// NewWorkbook 创建工作簿并写入数据 sheet
func NewWorkbook(g *Generator) (*Workbook, error) {
	w := &Workbook{g: g, f: excelize.NewFile()}
	if err := w.writeRawSheet(); err != nil {
		_ = w.f.Close()
		return nil, err
	}
	if !g.opts.SkipCleanedSheet {
		if err := w.writeCleanedSheet(); err != nil {
			_ = w.f.Close()
			return nil, err
		}
	}
	// excelize 默认的 Sheet1 不保留
	if err := w.f.DeleteSheet("Sheet1"); err != nil {
		_ = w.f.Close()
		return nil, fmt.Errorf("删除默认 sheet 失败: %w", err)
	}
	return w, nil
}

// File 暴露底层 excelize 文件（测试与本地重算引擎使用）
func (w *Workbook) File() *excelize.File { return w.f }

func (w *Workbook) writeRawSheet() error {
	p := w.g.profile
	if _, err := w.f.NewSheet(RawSheetName); err != nil {
		return fmt.Errorf("创建原始数据 sheet 失败: %w", err)
	}

	for i := range p.Columns {
		col := &p.Columns[i]
		if err := w.f.SetCellStr(RawSheetName, formula.CellName(col.Index, 1), col.Name); err != nil {
			return fmt.Errorf("写入原始表头失败: %w", err)
		}
		for r := 0; r < p.Rows; r++ {
			raw, _ := p.RawCell(col.Name, r)
			if raw == "" {
				continue
			}
			// 原始值一律按文本落盘，数值化只发生在清洗公式里
			if err := w.f.SetCellStr(RawSheetName, formula.CellName(col.Index, r+2), raw); err != nil {
				return fmt.Errorf("写入原始数据失败: %w", err)
			}
		}
	}

	if err := w.styleHeader(RawSheetName, len(p.Columns)); err != nil {
		return err
	}
	// 原始数据锁定，杜绝后续流程改动字面值
	if err := w.f.ProtectSheet(RawSheetName, &excelize.SheetProtectionOptions{
		AlgorithmName:       "SHA-512",
		SelectLockedCells:   true,
		SelectUnlockedCells: true,
	}); err != nil {
		return fmt.Errorf("锁定原始数据 sheet 失败: %w", err)
	}
	return nil
}

// cleanFormula 清洗公式：raw 为原始单元格引用文本
func cleanFormula(col *dataset.Column, raw string) string {
	trimmed := "TRIM(" + raw + ")"
	nullCond := `OR(` + trimmed + `=""`
	for _, tok := range cleanNullTokens {
		nullCond += `,LOWER(` + trimmed + `)="` + tok + `"`
	}
	nullCond += ")"

	switch {
	case col.Type == dataset.ColumnNumeric:
		return `=IF(` + nullCond + `,"",IFERROR(VALUE(` + trimmed + `),""))`
	case col.Boolean:
		// 布尔列清洗为真布尔值，保证 COUNTIF 条件与 TRUE/FALSE 字面量可比
		return `=IF(` + nullCond + `,"",UPPER(` + trimmed + `)="TRUE")`
	default:
		return `=IF(` + nullCond + `,"",` + trimmed + `)`
	}
}

func (w *Workbook) writeCleanedSheet() error {
	p := w.g.profile
	if _, err := w.f.NewSheet(CleanedSheetName); err != nil {
		return fmt.Errorf("创建清洗 sheet 失败: %w", err)
	}

	for i := range p.Columns {
		col := &p.Columns[i]
		if err := w.f.SetCellStr(CleanedSheetName, formula.CellName(col.Index, 1), col.Name); err != nil {
			return fmt.Errorf("写入清洗表头失败: %w", err)
		}
		for r := 0; r < p.Rows; r++ {
			rawRef := "'" + RawSheetName + "'!" + formula.CellName(col.Index, r+2)
			cell := formula.CellName(col.Index, r+2)
			if err := w.f.SetCellFormula(CleanedSheetName, cell, cleanFormula(col, rawRef)); err != nil {
				return fmt.Errorf("写入清洗公式失败: %w", err)
			}
		}
	}
	return w.styleHeader(CleanedSheetName, len(p.Columns))
}

func (w *Workbook) styleHeader(sheet string, ncols int) error {
	style, err := w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("创建表头样式失败: %w", err)
	}
	if err := w.f.SetCellStyle(sheet, "A1", formula.CellName(ncols, 1), style); err != nil {
		return fmt.Errorf("应用表头样式失败: %w", err)
	}
	return nil
}

// Apply 把一个生成结果写入工作簿：
// 有序回放全部写入，隐藏辅助列。同名 sheet 重复写入直接报错。
func (w *Workbook) Apply(s *Sheet) error {
	if idx, _ := w.f.GetSheetIndex(s.Name); idx >= 0 {
		return fmt.Errorf("sheet %q 已存在，拒绝覆盖", s.Name)
	}
	if _, err := w.f.NewSheet(s.Name); err != nil {
		return fmt.Errorf("创建 sheet %q 失败: %w", s.Name, err)
	}

	for _, wr := range s.Writes {
		if wr.Formula != "" {
			if err := w.f.SetCellFormula(s.Name, wr.Cell, wr.Formula); err != nil {
				return fmt.Errorf("写入公式 %s!%s 失败: %w", s.Name, wr.Cell, err)
			}
			continue
		}
		if err := w.setLabel(s.Name, wr.Cell, wr.Value); err != nil {
			return err
		}
	}

	for _, h := range s.Helpers {
		if err := w.f.SetColVisible(s.Name, h.Letter, false); err != nil {
			return fmt.Errorf("隐藏辅助列 %s!%s 失败: %w", s.Name, h.Letter, err)
		}
	}
	return nil
}

func (w *Workbook) setLabel(sheet, cell string, v any) error {
	var err error
	switch x := v.(type) {
	case string:
		err = w.f.SetCellStr(sheet, cell, x)
	case bool:
		err = w.f.SetCellBool(sheet, cell, x)
	default:
		err = w.f.SetCellValue(sheet, cell, v)
	}
	if err != nil {
		return fmt.Errorf("写入标签 %s!%s 失败: %w", sheet, cell, err)
	}
	return nil
}

// Save 落盘。路径必须以 .xlsx 结尾。
func (w *Workbook) Save(path string) error {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return fmt.Errorf("产物路径必须以 .xlsx 结尾: %s", path)
	}
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("保存工作簿失败: %w", err)
	}
	return nil
}

// Close 释放底层文件
func (w *Workbook) Close() error { return w.f.Close() }
