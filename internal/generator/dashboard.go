package generator

import (
	"veristat/internal/formula"
)

// 汇总仪表盘每类展示的变量数上限
const dashboardTopN = 8

// buildSummaryDashboard 汇总仪表盘：数据集规模、完整率与核心变量速览。
// 全部指标直接从数据 sheet 重新推出，不引用其他分析 sheet，
// 避免 sheet 生成顺序影响结果。
func (s *session) buildSummaryDashboard() error {
	p := s.g.profile
	s.label(1, 1, s.task.Name)

	s.label(1, 3, "样本量")
	rowsCell := s.formula(2, 3, s.rowCountExpr())
	s.label(1, 4, "变量数")
	colsCell := s.formula(2, 4, formula.Fn("COUNTA", formula.Range(RawSheetName, "1", "1")))
	s.label(1, 5, "数值变量数")
	s.formula(2, 5, formula.Int(len(p.NumericColumns())))
	s.label(1, 6, "分类变量数")
	s.formula(2, 6, formula.Int(len(p.CategoricalColumns())))

	// 整体完整率 = 1 - Σ逐列缺失 / (行数·列数)
	var missParts []formula.Expr
	for i := range p.Columns {
		col := &p.Columns[i]
		missParts = append(missParts, formula.Group(
			formula.Bin("-", formula.Raw(rowsCell), s.validCountExpr(col))))
	}
	missSum := missParts[0]
	for _, part := range missParts[1:] {
		missSum = formula.Bin("+", missSum, part)
	}
	s.label(1, 7, "完整率")
	complCell := s.formula(2, 7, formula.Fn("IF",
		formula.Bin("=", formula.Raw(rowsCell), formula.Int(0)),
		formula.Empty(),
		formula.Bin("-", formula.Int(1),
			formula.Bin("/", formula.Group(missSum),
				formula.Bin("*", formula.Raw(rowsCell), formula.Raw(colsCell))))))

	s.probe("row_count", ProbeRowCount, rowsCell, nil)
	s.probe("column_count", ProbeColumnCount, colsCell, nil)
	s.probe("completeness", ProbeCompleteness, complCell, nil)

	// 核心数值变量速览
	headers := []string{"变量", "N", "均值", "标准差"}
	for i, h := range headers {
		s.label(i+1, 10, h)
	}
	row := 11
	nums := p.NumericColumns()
	if len(nums) > dashboardTopN {
		nums = nums[:dashboardTopN]
	}
	for _, name := range nums {
		col, err := s.mustColumn(name)
		if err != nil {
			return err
		}
		r := s.dataRange(col)
		cnt := formula.Fn("COUNT", r)
		s.label(1, row, name)
		nCell := s.formula(2, row, cnt)
		meanCell := s.formula(3, row, guardMin(cnt, 1, formula.Fn("AVERAGE", r)))
		sdCell := s.formula(4, row, guardMin(cnt, 2, formula.Fn("STDEV.S", r)))

		name := name
		s.probe(name+"/n", ProbeCount, nCell, func(pr *Probe) { pr.Columns = []string{name} })
		s.probe(name+"/mean", ProbeMean, meanCell, func(pr *Probe) { pr.Columns = []string{name} })
		s.probe(name+"/sd", ProbeSD, sdCell, func(pr *Probe) { pr.Columns = []string{name} })
		row++
	}

	s.sheet.DataRegion = Region{FirstRow: 3, FirstCol: 2, LastRow: row - 1, LastCol: len(headers)}
	return nil
}
