package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/model"
)

// 相关明细表最多展开的变量对数
const maxCorrelationPairs = 10

// buildCorrelationMatrix 皮尔逊相关矩阵。
// 只有上三角真正重算（ROUND 保留 3 位，验证用绝对容差对齐）；
// 对角线是常量 1，下三角引用上三角镜像单元格。
// 明细表中的 r²/Fisher z 基于未舍入的 CORREL 计算。
func (s *session) buildCorrelationMatrix() error {
	cols, err := s.selectColumns(dataset.ColumnNumeric)
	if err != nil {
		return err
	}
	if len(cols) < 2 {
		return model.NewInputError(s.task.ID, "相关矩阵需要至少 2 个数值列，当前 %d 个", len(cols))
	}

	s.label(1, 1, s.task.Name)

	ranges := make([]formula.Expr, len(cols))
	for i, name := range cols {
		col, err := s.mustColumn(name)
		if err != nil {
			return err
		}
		ranges[i] = s.dataRange(col)
	}

	// 矩阵：第 3 行列头，第 4 行起每变量一行
	headerRow := 3
	for j, name := range cols {
		s.label(j+2, headerRow, name)
	}
	for i, name := range cols {
		row := headerRow + 1 + i
		s.label(1, row, name)
		for j := range cols {
			switch {
			case i == j:
				// 对角线是常量 1，不重算
				s.formula(j+2, row, formula.Int(1))
			case i > j:
				// 下三角引用上三角镜像单元格，对称性由引用结构保证
				s.formula(j+2, row, formula.Raw(formula.CellName(i+2, headerRow+1+j)))
			default:
				cell := s.formula(j+2, row,
					formula.Fn("ROUND", formula.Fn("CORREL", ranges[i], ranges[j]), formula.Int(3)))
				a, b := cols[i], cols[j]
				s.probe(a+"~"+b+"/r", ProbeCorrelation, cell, func(p *Probe) {
					p.Columns = []string{a, b}
				})
			}
		}
	}
	matrixLast := headerRow + len(cols)

	// 明细表：前若干对的未舍入 r²与 Fisher z
	row := matrixLast + 3
	s.label(1, row, "变量对明细")
	row++
	for i, h := range []string{"变量对", "r²", "Fisher z"} {
		s.label(i+1, row, h)
	}
	row++
	pairs := 0
	for i := 0; i < len(cols) && pairs < maxCorrelationPairs; i++ {
		for j := i + 1; j < len(cols) && pairs < maxCorrelationPairs; j++ {
			a, b := cols[i], cols[j]
			s.label(1, row, a+" ~ "+b)
			corr := formula.Fn("CORREL", ranges[i], ranges[j])
			r2Cell := s.formula(2, row, formula.Bin("^", formula.Group(corr), formula.Int(2)))
			fzCell := s.formula(3, row, formula.Fn("FISHER", corr))
			s.probe(a+"~"+b+"/r2", ProbeRSquared, r2Cell, func(p *Probe) {
				p.Columns = []string{a, b}
			})
			s.probe(a+"~"+b+"/fisher_z", ProbeFisherZ, fzCell, func(p *Probe) {
				p.Columns = []string{a, b}
			})
			row++
			pairs++
		}
	}

	s.sheet.DataRegion = Region{FirstRow: headerRow + 1, FirstCol: 2, LastRow: row - 1, LastCol: len(cols) + 1}
	return nil
}
