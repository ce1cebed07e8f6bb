package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/model"
)

// buildNormalityCheck 正态性粗检：偏度/峰度及其标准误近似 z 分数。
// |z| < 1.96 视为未显著偏离正态（5% 水平的粗判，结论列仅供人读）。
func (s *session) buildNormalityCheck() error {
	cols, err := s.selectColumns(dataset.ColumnNumeric)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return model.NewInputError(s.task.ID, "正态性检查需要至少一个数值列")
	}

	s.label(1, 1, s.task.Name)
	headers := []string{"变量", "N", "偏度", "SE偏度", "z偏度", "峰度", "SE峰度", "z峰度", "结论"}
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
		skewCell := s.formula(3, row, guardMin(count, 3, formula.Fn("SKEW", r)))
		// SE(skew) ≈ SQRT(6/N)，SE(kurt) ≈ SQRT(24/N)
		seSkewCell := s.formula(4, row, guardMin(count, 3,
			formula.Fn("SQRT", formula.Bin("/", formula.Int(6), formula.Raw(nCell)))))
		zSkewCell := s.formula(5, row, guardMin(count, 3,
			formula.Bin("/", formula.Raw(skewCell), formula.Raw(seSkewCell))))
		kurtCell := s.formula(6, row, guardMin(count, 4, formula.Fn("KURT", r)))
		seKurtCell := s.formula(7, row, guardMin(count, 4,
			formula.Fn("SQRT", formula.Bin("/", formula.Int(24), formula.Raw(nCell)))))
		zKurtCell := s.formula(8, row, guardMin(count, 4,
			formula.Bin("/", formula.Raw(kurtCell), formula.Raw(seKurtCell))))
		s.formula(9, row, guardMin(count, 4,
			formula.Fn("IF",
				formula.Fn("AND",
					formula.Bin("<", formula.Fn("ABS", formula.Raw(zSkewCell)), formula.Num(1.96)),
					formula.Bin("<", formula.Fn("ABS", formula.Raw(zKurtCell)), formula.Num(1.96))),
				formula.Str("近似正态"),
				formula.Str("偏离正态"))))

		one := []string{name}
		s.probe(name+"/n", ProbeCount, nCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/skewness", ProbeSkewness, skewCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/se_skew", ProbeSESkew, seSkewCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/z_skew", ProbeZSkew, zSkewCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/kurtosis", ProbeKurtosis, kurtCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/se_kurt", ProbeSEKurt, seKurtCell, func(p *Probe) { p.Columns = one })
		s.probe(name+"/z_kurt", ProbeZKurt, zKurtCell, func(p *Probe) { p.Columns = one })
		row++
	}

	s.sheet.DataRegion = Region{FirstRow: 4, FirstCol: 2, LastRow: row - 1, LastCol: len(headers)}
	return nil
}
