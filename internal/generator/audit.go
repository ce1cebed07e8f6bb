package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
)

// validCountExpr 某列有效观测数。
// 数值列直接 COUNT；分类列的缺失在清洗 sheet 上是求值为空串的公式，
// COUNTA 会计入，必须用 <>"" 判定。
func (s *session) validCountExpr(col *dataset.Column) formula.Expr {
	r := s.dataRange(col)
	if col.Type == dataset.ColumnNumeric {
		return formula.Fn("COUNT", r)
	}
	return formula.Fn("SUMPRODUCT", formula.Raw("--("+formula.Render(r)+`<>"")`))
}

// buildDataAudit 数据审计总表：行列规模、逐列缺失与整体完整率。
// 行数由原始 sheet 首列 COUNTA 推出，其余统计均引用清洗 sheet。
func (s *session) buildDataAudit() error {
	p := s.g.profile
	s.label(1, 1, s.task.Name)

	s.label(1, 3, "数据行数")
	rowsCell := s.formula(2, 3, s.rowCountExpr())
	s.label(1, 4, "变量数")
	colsCell := s.formula(2, 4, formula.Fn("COUNTA", formula.Range(RawSheetName, "1", "1")))
	s.label(1, 5, "单元格总数")
	cellsCell := s.formula(2, 5, formula.Bin("*", formula.Raw(rowsCell), formula.Raw(colsCell)))

	// 逐列表
	headers := []string{"列名", "类型", "有效N", "缺失N", "缺失率"}
	for i, h := range headers {
		s.label(i+1, 8, h)
	}
	row := 9
	var missCells []string
	for i := range p.Columns {
		col := &p.Columns[i]
		s.label(1, row, col.Name)
		s.label(2, row, string(col.Type))
		validCell := s.formula(3, row, s.validCountExpr(col))
		missCell := s.formula(4, row, formula.Bin("-", formula.Raw(rowsCell), formula.Raw(validCell)))
		s.formula(5, row, formula.Fn("IF",
			formula.Bin("=", formula.Raw(rowsCell), formula.Int(0)),
			formula.Empty(),
			formula.Bin("/", formula.Raw(missCell), formula.Raw(rowsCell))))
		missCells = append(missCells, missCell)

		name := col.Name
		s.probe(name+"/valid_n", ProbeValidN, validCell, func(pr *Probe) { pr.Columns = []string{name} })
		s.probe(name+"/missing_n", ProbeMissingN, missCell, func(pr *Probe) { pr.Columns = []string{name} })
		row++
	}

	s.label(1, 6, "缺失总数")
	missTotalCell := s.formula(2, 6, formula.Fn("SUM",
		formula.Raw(missCells[0]+":"+missCells[len(missCells)-1])))
	s.label(1, 7, "完整率")
	complCell := s.formula(2, 7, formula.Fn("IF",
		formula.Bin("=", formula.Raw(cellsCell), formula.Int(0)),
		formula.Empty(),
		formula.Bin("-", formula.Int(1),
			formula.Bin("/", formula.Raw(missTotalCell), formula.Raw(cellsCell)))))

	s.probe("row_count", ProbeRowCount, rowsCell, nil)
	s.probe("column_count", ProbeColumnCount, colsCell, nil)
	s.probe("missing_total", ProbeMissingTotal, missTotalCell, nil)
	s.probe("completeness", ProbeCompleteness, complCell, nil)

	s.sheet.DataRegion = Region{FirstRow: 3, FirstCol: 2, LastRow: row - 1, LastCol: len(headers)}
	return nil
}
