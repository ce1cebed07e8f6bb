package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/model"
)

// buildEffectSizes 效应量汇总。
// 指定分组列时给出两组比较的 Cohen's d（合并标准差，阈值 0.2/0.5/0.8）；
// 任意两个数值变量之间给出相关效应量 r/r²/Fisher z（阈值 0.1/0.3/0.5）。
// 两个区块相互独立，分组区块只在 group_by 存在时生成。
func (s *session) buildEffectSizes() error {
	cols, err := s.selectColumns(dataset.ColumnNumeric)
	if err != nil {
		return err
	}
	if s.task.GroupBy == "" && len(cols) < 2 {
		return model.NewInputError(s.task.ID, "效应量计算需要分组列或至少两个数值变量")
	}
	if s.task.GroupBy != "" && len(cols) == 0 {
		return model.NewInputError(s.task.ID, "效应量计算需要至少一个数值因变量")
	}

	s.label(1, 1, s.task.Name)
	row := 3
	lastCol := 5
	firstDataRow := 0

	if s.task.GroupBy != "" {
		row, firstDataRow, err = s.groupEffectBlock(cols, row)
		if err != nil {
			return err
		}
		lastCol = 7
		row += 2 // 区块间空两行
	}

	if len(cols) >= 2 {
		row = s.correlationEffectBlock(cols, row, &firstDataRow)
	}

	s.sheet.DataRegion = Region{FirstRow: firstDataRow, FirstCol: 2, LastRow: row - 1, LastCol: lastCol}
	return nil
}

// groupEffectBlock 两组比较的 Cohen's d 区块。
// 合并标准差为 0 时按约定 d=0。
func (s *session) groupEffectBlock(cols []string, row int) (nextRow, firstDataRow int, err error) {
	gcol, levels, err := s.groupPair()
	if err != nil {
		return 0, 0, err
	}

	g1, g2 := formula.Render(formula.Criterion(levels[0])), formula.Render(formula.Criterion(levels[1]))
	s.label(1, row, "分组: "+s.task.GroupBy+" ("+g1+" vs "+g2+")")
	row += 2
	headers := []string{"变量", "N₁", "N₂", "均值差", "合并SD", "Cohen's d", "解释"}
	for i, h := range headers {
		s.label(i+1, row, h)
	}
	row++
	firstDataRow = row

	for _, name := range cols {
		vcol, err := s.mustColumn(name)
		if err != nil {
			return 0, 0, err
		}
		hs := s.groupHelpers(vcol, gcol, levels)
		r1, r2 := hs[0].Range(), hs[1].Range()

		s.label(1, row, name)
		n1 := s.formula(2, row, formula.Fn("COUNT", r1))
		n2 := s.formula(3, row, formula.Fn("COUNT", r2))
		smallGroup := formula.Fn("OR",
			formula.Bin("<", formula.Raw(n1), formula.Int(2)),
			formula.Bin("<", formula.Raw(n2), formula.Int(2)))
		diff := s.formula(4, row, formula.Fn("IF", smallGroup, formula.Empty(),
			formula.Bin("-", formula.Fn("AVERAGE", r1), formula.Fn("AVERAGE", r2))))
		// 合并 SD = √(((n1-1)·VAR1 + (n2-1)·VAR2) / (n1+n2-2))
		pooled := formula.Fn("SQRT", formula.Bin("/",
			formula.Group(formula.Bin("+",
				formula.Bin("*",
					formula.Group(formula.Bin("-", formula.Raw(n1), formula.Int(1))),
					formula.Fn("VAR.S", r1)),
				formula.Bin("*",
					formula.Group(formula.Bin("-", formula.Raw(n2), formula.Int(1))),
					formula.Fn("VAR.S", r2)))),
			formula.Group(formula.Bin("-",
				formula.Bin("+", formula.Raw(n1), formula.Raw(n2)),
				formula.Int(2)))))
		sdCell := s.formula(5, row, formula.Fn("IF", smallGroup, formula.Empty(), pooled))
		dCell := s.formula(6, row, formula.Fn("IF", smallGroup, formula.Empty(),
			formula.Fn("IF",
				formula.Bin("=", formula.Raw(sdCell), formula.Int(0)),
				formula.Int(0),
				formula.Bin("/", formula.Raw(diff), formula.Raw(sdCell)))))
		s.formula(7, row, formula.Fn("IF", smallGroup, formula.Empty(),
			magnitudeExpr(dCell, 0.2, 0.5, 0.8)))

		name := name
		pair := []string{name, s.task.GroupBy}
		s.probe(name+"/n1", ProbeGroupN, n1, func(p *Probe) { p.Columns = pair; p.Group = levels[0] })
		s.probe(name+"/n2", ProbeGroupN, n2, func(p *Probe) { p.Columns = pair; p.Group = levels[1] })
		s.probe(name+"/mean_diff", ProbeMeanDiff, diff, func(p *Probe) { p.Columns = pair })
		s.probe(name+"/cohens_d", ProbeCohensD, dCell, func(p *Probe) { p.Columns = pair })
		row++
	}
	return row, firstDataRow, nil
}

// correlationEffectBlock 变量对的相关效应量区块
func (s *session) correlationEffectBlock(cols []string, row int, firstDataRow *int) int {
	s.label(1, row, "相关效应量")
	row++
	for i, h := range []string{"变量对", "r", "r²", "Fisher z", "解释"} {
		s.label(i+1, row, h)
	}
	row++
	if *firstDataRow == 0 {
		*firstDataRow = row
	}

	pairs := 0
	for i := 0; i < len(cols) && pairs < maxCorrelationPairs; i++ {
		for j := i + 1; j < len(cols) && pairs < maxCorrelationPairs; j++ {
			a, b := cols[i], cols[j]
			ca, _ := s.g.profile.Column(a)
			cb, _ := s.g.profile.Column(b)

			s.label(1, row, a+" ~ "+b)
			rCell := s.formula(2, row, formula.Fn("CORREL", s.dataRange(ca), s.dataRange(cb)))
			r2Cell := s.formula(3, row, formula.Bin("^", formula.Raw(rCell), formula.Int(2)))
			fzCell := s.formula(4, row, formula.Fn("FISHER", formula.Raw(rCell)))
			s.formula(5, row, magnitudeExpr(rCell, 0.1, 0.3, 0.5))

			s.probe(a+"~"+b+"/r", ProbeCorrelation, rCell, func(p *Probe) {
				p.Columns = []string{a, b}
			})
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
	return row
}

// magnitudeExpr 效应量的量级解释：|cell| 与三个递增阈值比较
func magnitudeExpr(cell string, small, medium, large float64) formula.Expr {
	abs := formula.Fn("ABS", formula.Raw(cell))
	return formula.Fn("IF",
		formula.Bin("<", abs, formula.Num(small)),
		formula.Str("可忽略"),
		formula.Fn("IF",
			formula.Bin("<", abs, formula.Num(medium)),
			formula.Str("小"),
			formula.Fn("IF",
				formula.Bin("<", abs, formula.Num(large)),
				formula.Str("中"),
				formula.Str("大"))))
}
