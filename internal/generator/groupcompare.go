package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/model"
)

// groupPair 解析组比较的分组列与前两个水平（按首次出现顺序）
func (s *session) groupPair() (*dataset.Column, [2]any, error) {
	var levels [2]any
	if s.task.GroupBy == "" {
		return nil, levels, model.NewInputError(s.task.ID, "组比较必须指定 group_by 分组列")
	}
	gcol, err := s.mustColumn(s.task.GroupBy)
	if err != nil {
		return nil, levels, err
	}
	all := s.g.profile.Levels(s.task.GroupBy)
	if len(all) < 2 {
		return nil, levels, model.NewInputError(s.task.ID,
			"分组列 %q 只有 %d 个水平，至少需要 2 个", s.task.GroupBy, len(all))
	}
	levels[0], levels[1] = all[0], all[1]
	return gcol, levels, nil
}

// groupHelpers 为一个数值变量分配两组取值的守卫辅助列：
// 行属于该组时取变量值，否则为空串。
func (s *session) groupHelpers(vcol, gcol *dataset.Column, levels [2]any) [2]HelperCol {
	var hs [2]HelperCol
	for g := 0; g < 2; g++ {
		hs[g] = s.arena.alloc(vcol.Name + " @ " + formula.Render(formula.Criterion(levels[g])))
		s.recordHelper(hs[g], vcol.Name+" 分组 "+formula.Render(formula.Criterion(levels[g])))
		for dr := 0; dr < s.g.profile.Rows; dr++ {
			s.formulaAt(hs[g].CellAt(dr+2),
				formula.Fn("IF",
					formula.Bin("=", s.dataCell(gcol, dr), formula.Criterion(levels[g])),
					s.dataCell(vcol, dr),
					formula.Empty()))
		}
	}
	return hs
}

// buildGroupComparison 两组独立样本 t 检验（合并方差）。
// 分组水平多于 2 个时取前两个；组统计量经守卫辅助列计算，
// t/p/F 检验在任一组样本量不足时返回空串。
func (s *session) buildGroupComparison() error {
	gcol, levels, err := s.groupPair()
	if err != nil {
		return err
	}
	cols, err := s.selectColumns(dataset.ColumnNumeric)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return model.NewInputError(s.task.ID, "组比较需要至少一个数值因变量")
	}

	g1, g2 := formula.Render(formula.Criterion(levels[0])), formula.Render(formula.Criterion(levels[1]))
	s.label(1, 1, s.task.Name)
	s.label(1, 2, "分组: "+s.task.GroupBy+" ("+g1+" vs "+g2+")")
	headers := []string{"变量",
		"N₁", "均值₁", "SD₁",
		"N₂", "均值₂", "SD₂",
		"均值差", "t", "df", "p", "方差齐性p"}
	for i, h := range headers {
		s.label(i+1, 4, h)
	}

	row := 5
	for _, name := range cols {
		vcol, err := s.mustColumn(name)
		if err != nil {
			return err
		}
		hs := s.groupHelpers(vcol, gcol, levels)
		r1, r2 := hs[0].Range(), hs[1].Range()

		s.label(1, row, name)
		n1 := s.formula(2, row, formula.Fn("COUNT", r1))
		m1 := s.formula(3, row, guardMin(formula.Fn("COUNT", r1), 1, formula.Fn("AVERAGE", r1)))
		sd1 := s.formula(4, row, guardMin(formula.Fn("COUNT", r1), 2, formula.Fn("STDEV.S", r1)))
		n2 := s.formula(5, row, formula.Fn("COUNT", r2))
		m2 := s.formula(6, row, guardMin(formula.Fn("COUNT", r2), 1, formula.Fn("AVERAGE", r2)))
		sd2 := s.formula(7, row, guardMin(formula.Fn("COUNT", r2), 2, formula.Fn("STDEV.S", r2)))

		smallGroup := formula.Fn("OR",
			formula.Bin("<", formula.Raw(n1), formula.Int(2)),
			formula.Bin("<", formula.Raw(n2), formula.Int(2)))
		diff := s.formula(8, row, formula.Fn("IF", smallGroup, formula.Empty(),
			formula.Bin("-", formula.Raw(m1), formula.Raw(m2))))
		dfE := formula.Bin("-", formula.Bin("+", formula.Raw(n1), formula.Raw(n2)), formula.Int(2))
		// 合并方差 sp² = ((n1-1)sd1² + (n2-1)sd2²) / (n1+n2-2)
		sp2 := formula.Bin("/",
			formula.Group(formula.Bin("+",
				formula.Bin("*",
					formula.Group(formula.Bin("-", formula.Raw(n1), formula.Int(1))),
					formula.Bin("^", formula.Raw(sd1), formula.Int(2))),
				formula.Bin("*",
					formula.Group(formula.Bin("-", formula.Raw(n2), formula.Int(1))),
					formula.Bin("^", formula.Raw(sd2), formula.Int(2))))),
			formula.Group(dfE))
		tExpr := formula.Bin("/",
			formula.Group(formula.Bin("-", formula.Raw(m1), formula.Raw(m2))),
			formula.Fn("SQRT", formula.Bin("*", formula.Group(sp2),
				formula.Group(formula.Bin("+",
					formula.Bin("/", formula.Int(1), formula.Raw(n1)),
					formula.Bin("/", formula.Int(1), formula.Raw(n2)))))))
		tCell := s.formula(9, row, formula.Fn("IF", smallGroup, formula.Empty(), tExpr))
		dfCell := s.formula(10, row, formula.Fn("IF", smallGroup, formula.Empty(), dfE))
		pCell := s.formula(11, row, formula.Fn("IF", smallGroup, formula.Empty(),
			formula.Fn("T.DIST.2T",
				formula.Fn("ABS", formula.Raw(tCell)),
				formula.Raw(dfCell))))
		fCell := s.formula(12, row, formula.Fn("IF", smallGroup, formula.Empty(),
			formula.Fn("F.TEST", r1, r2)))

		name := name
		pair := []string{name, s.task.GroupBy}
		s.probe(name+"/n1", ProbeGroupN, n1, func(p *Probe) { p.Columns = pair; p.Group = levels[0] })
		s.probe(name+"/mean1", ProbeGroupMean, m1, func(p *Probe) { p.Columns = pair; p.Group = levels[0] })
		s.probe(name+"/sd1", ProbeGroupSD, sd1, func(p *Probe) { p.Columns = pair; p.Group = levels[0] })
		s.probe(name+"/n2", ProbeGroupN, n2, func(p *Probe) { p.Columns = pair; p.Group = levels[1] })
		s.probe(name+"/mean2", ProbeGroupMean, m2, func(p *Probe) { p.Columns = pair; p.Group = levels[1] })
		s.probe(name+"/sd2", ProbeGroupSD, sd2, func(p *Probe) { p.Columns = pair; p.Group = levels[1] })
		s.probe(name+"/mean_diff", ProbeMeanDiff, diff, func(p *Probe) { p.Columns = pair })
		s.probe(name+"/t", ProbeTStat, tCell, func(p *Probe) { p.Columns = pair })
		s.probe(name+"/df", ProbeDF, dfCell, func(p *Probe) { p.Columns = pair })
		s.probe(name+"/p", ProbePValue, pCell, func(p *Probe) { p.Columns = pair })
		s.probe(name+"/f_test_p", ProbeHomogeneityP, fCell, func(p *Probe) { p.Columns = pair })
		row++
	}

	s.sheet.DataRegion = Region{FirstRow: 5, FirstCol: 2, LastRow: row - 1, LastCol: len(headers)}
	return nil
}
