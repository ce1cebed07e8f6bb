package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/model"
)

// buildDescriptives 描述统计表：每个数值变量一行，
// N/均值/标准差/标准误/中位数/最小/最大/极差/偏度/峰度全部为公式。
// 样本量不足以定义某统计量时公式返回空串，与地面真值的 NaN 对应。
func (s *session) buildDescriptives() error {
	cols, err := s.selectColumns(dataset.ColumnNumeric)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return model.NewInputError(s.task.ID, "描述统计需要至少一个数值列")
	}

	s.label(1, 1, s.task.Name)
	headers := []string{"变量", "N", "均值", "标准差", "标准误", "中位数", "最小值", "最大值", "极差", "偏度", "峰度"}
	for i, h := range headers {
		s.label(i+1, 3, h)
	}

	row := 4
	for _, name := range cols {
		col, err := s.mustColumn(name)
		if err != nil {
			return err
		}
		r := s.dataRange(col)
		count := formula.Fn("COUNT", r)

		s.label(1, row, name)
		nCell := s.formula(2, row, count)
		meanCell := s.formula(3, row, guardMin(count, 1, formula.Fn("AVERAGE", r)))
		sdCell := s.formula(4, row, guardMin(count, 2, formula.Fn("STDEV.S", r)))
		// 标准误 = SD / SQRT(N)
		seCell := s.formula(5, row, guardMin(count, 2,
			formula.Bin("/", formula.Raw(sdCell), formula.Fn("SQRT", formula.Raw(nCell)))))
		medCell := s.formula(6, row, guardMin(count, 1, formula.Fn("MEDIAN", r)))
		minCell := s.formula(7, row, guardMin(count, 1, formula.Fn("MIN", r)))
		maxCell := s.formula(8, row, guardMin(count, 1, formula.Fn("MAX", r)))
		rngCell := s.formula(9, row, guardMin(count, 1,
			formula.Bin("-", formula.Raw(maxCell), formula.Raw(minCell))))
		skewCell := s.formula(10, row, guardMin(count, 3, formula.Fn("SKEW", r)))
		kurtCell := s.formula(11, row, guardMin(count, 4, formula.Fn("KURT", r)))

		one := []string{name}
		s.probe(name+"/n", ProbeCount, nCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/mean", ProbeMean, meanCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/sd", ProbeSD, sdCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/se", ProbeSE, seCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/median", ProbeMedian, medCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/min", ProbeMin, minCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/max", ProbeMax, maxCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/range", ProbeRange, rngCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/skewness", ProbeSkewness, skewCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/kurtosis", ProbeKurtosis, kurtCell, func(p *Probe) { p.Columns = one })
		row++
	}

	s.sheet.DataRegion = Region{FirstRow: 4, FirstCol: 2, LastRow: row - 1, LastCol: len(headers)}
	return nil
}

// guardMin 样本量守卫：count < min 时返回空串，否则求值 expr
func guardMin(count formula.Expr, min int, expr formula.Expr) formula.Expr {
	return formula.Fn("IF",
		formula.Bin("<", count, formula.Int(min)),
		formula.Empty(),
		expr)
}
