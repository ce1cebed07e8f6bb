package generator

import (
	"veristat/internal/formula"
)

// buildMissingData 缺失模式分析：逐列缺失率与逐行完整性。
// 完整行数经隐藏辅助列逐行判定——清洗 sheet 的缺失统一呈现为空串，
// 一行完整当且仅当该行范围内没有等于空串的单元格。
func (s *session) buildMissingData() error {
	p := s.g.profile
	s.label(1, 1, s.task.Name)

	// 行完整性辅助列
	flag := s.arena.alloc("行完整标记")
	s.recordHelper(flag, "行完整标记")
	lastLetter := p.Columns[len(p.Columns)-1].Letter
	for dr := 0; dr < p.Rows; dr++ {
		row := dr + 2
		rowRange := formula.Range(s.g.DataSheetName(),
			p.Columns[0].Letter+formula.FormatNumber(float64(row)),
			lastLetter+formula.FormatNumber(float64(row)))
		s.formulaAt(flag.CellAt(row), formula.Fn("IF",
			formula.Bin("=",
				formula.Fn("COUNTIF", rowRange, formula.Empty()),
				formula.Int(0)),
			formula.Int(1),
			formula.Int(0)))
	}

	s.label(1, 3, "数据行数")
	rowsCell := s.formula(2, 3, s.rowCountExpr())
	s.label(1, 4, "完整行数")
	completeCell := s.formula(2, 4, formula.Fn("SUM", flag.Range()))
	s.label(1, 5, "完整行比例")
	pctCompleteCell := s.formula(2, 5, formula.Fn("IF",
		formula.Bin("=", formula.Raw(rowsCell), formula.Int(0)),
		formula.Empty(),
		formula.Bin("/", formula.Raw(completeCell), formula.Raw(rowsCell))))

	headers := []string{"列名", "缺失N", "缺失率"}
	for i, h := range headers {
		s.label(i+1, 7, h)
	}
	row := 8
	var missCells []string
	for i := range p.Columns {
		col := &p.Columns[i]
		s.label(1, row, col.Name)
		missCell := s.formula(2, row, formula.Bin("-",
			formula.Raw(rowsCell), s.validCountExpr(col)))
		pctCell := s.formula(3, row, formula.Fn("IF",
			formula.Bin("=", formula.Raw(rowsCell), formula.Int(0)),
			formula.Empty(),
			formula.Bin("/", formula.Raw(missCell), formula.Raw(rowsCell))))
		missCells = append(missCells, missCell)

		name := col.Name
		s.probe(name+"/missing_n", ProbeMissingN, missCell, func(pr *Probe) { pr.Columns = []string{name} })
		s.probe(name+"/pct_missing", ProbePctMissing, pctCell, func(pr *Probe) { pr.Columns = []string{name} })
		row++
	}

	s.label(1, row+1, "缺失总数")
	missTotalCell := s.formula(2, row+1, formula.Fn("SUM",
		formula.Raw(missCells[0]+":"+missCells[len(missCells)-1])))

	s.probe("row_count", ProbeRowCount, rowsCell, nil)
	// Columns 为空的完整行探针覆盖全部列
	s.probe("complete_rows", ProbeValidN, completeCell, nil)
	s.probe("pct_complete_rows", ProbePctComplete, pctCompleteCell, nil)
	s.probe("missing_total", ProbeMissingTotal, missTotalCell, nil)

	s.sheet.DataRegion = Region{FirstRow: 3, FirstCol: 2, LastRow: row + 1, LastCol: len(headers)}
	return nil
}
