package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/model"
)

// buildReliabilityAlpha Cronbach's α 信度分析。
// α 的口径是条目全部非缺失的完整行（listwise），sheet 公式通过
// 行完整性守卫的隐藏辅助列与地面真值对齐：辅助列只在完整行上取值。
func (s *session) buildReliabilityAlpha() error {
	items := s.task.ScaleItems
	itemCols := make([]*dataset.Column, len(items))
	for i, name := range items {
		col, err := s.mustColumn(name)
		if err != nil {
			return err
		}
		if col.Type != dataset.ColumnNumeric {
			return model.NewInputError(s.task.ID, "量表条目 %q 不是数值列", name)
		}
		itemCols[i] = col
	}
	k := len(items)

	// 行完整性条件：该行全部条目均为数值
	rowCond := func(dataRow int) formula.Expr {
		args := make([]formula.Expr, k)
		for i, col := range itemCols {
			args[i] = s.dataCell(col, dataRow)
		}
		return formula.Bin("=", formula.Fn("COUNT", args...), formula.Int(k))
	}
	rowSum := func(dataRow int) formula.Expr {
		args := make([]formula.Expr, k)
		for i, col := range itemCols {
			args[i] = s.dataCell(col, dataRow)
		}
		return formula.Fn("SUM", args...)
	}

	total := s.arena.alloc("量表总分（完整行）")
	s.recordHelper(total, "量表总分（完整行）")
	itemHelp := make([]HelperCol, k)
	restHelp := make([]HelperCol, k)
	for i, name := range items {
		itemHelp[i] = s.arena.alloc("条目 " + name + "（完整行）")
		s.recordHelper(itemHelp[i], "条目 "+name+"（完整行）")
		restHelp[i] = s.arena.alloc("总分减条目 " + name)
		s.recordHelper(restHelp[i], "总分减条目 "+name)
	}

	for dr := 0; dr < s.g.profile.Rows; dr++ {
		row := dr + 2
		s.formulaAt(total.CellAt(row),
			formula.Fn("IF", rowCond(dr), rowSum(dr), formula.Empty()))
		for i, col := range itemCols {
			s.formulaAt(itemHelp[i].CellAt(row),
				formula.Fn("IF", rowCond(dr), s.dataCell(col, dr), formula.Empty()))
			s.formulaAt(restHelp[i].CellAt(row),
				formula.Fn("IF", rowCond(dr),
					formula.Bin("-", rowSum(dr), s.dataCell(col, dr)),
					formula.Empty()))
		}
	}

	s.label(1, 1, s.task.Name)
	s.label(1, 3, "条目数")
	kCell := s.formula(2, 3, formula.Int(k))
	s.label(1, 4, "完整样本数")
	nCell := s.formula(2, 4, formula.Fn("COUNT", total.Range()))
	s.label(1, 5, "Cronbach α")

	// 条目表
	headers := []string{"条目", "均值", "标准差", "方差", "条目-总分相关"}
	for i, h := range headers {
		s.label(i+1, 7, h)
	}
	varCells := make([]string, k)
	for i, name := range items {
		row := 8 + i
		r := itemHelp[i].Range()
		cnt := formula.Fn("COUNT", r)
		s.label(1, row, name)
		meanCell := s.formula(2, row, guardMin(cnt, 1, formula.Fn("AVERAGE", r)))
		sdCell := s.formula(3, row, guardMin(cnt, 2, formula.Fn("STDEV.S", r)))
		varCells[i] = s.formula(4, row, guardMin(cnt, 2, formula.Fn("VAR.S", r)))
		itrCell := s.formula(5, row, guardMin(cnt, 3,
			formula.Fn("CORREL", r, restHelp[i].Range())))

		i := i
		name := name
		s.probe(name+"/item_mean", ProbeItemMean, meanCell, func(p *Probe) {
			p.Columns = items
			p.ItemIndex = i
		})
		s.probe(name+"/item_sd", ProbeItemSD, sdCell, func(p *Probe) {
			p.Columns = items
			p.ItemIndex = i
		})
		s.probe(name+"/item_variance", ProbeItemVariance, varCells[i], func(p *Probe) {
			p.Columns = items
			p.ItemIndex = i
		})
		s.probe(name+"/item_total_r", ProbeItemTotalR, itrCell, func(p *Probe) {
			p.Columns = items
			p.ItemIndex = i
		})
	}

	// α = k/(k-1) · (1 − Σ条目方差/总分方差)，总分方差为 0 时约定 α=0
	varSum := formula.Fn("SUM", formula.Raw(varCells[0]+":"+varCells[k-1]))
	totalVar := formula.Fn("VAR.S", total.Range())
	alphaCell := s.formula(2, 5, formula.Fn("IF",
		formula.Bin("<", formula.Raw(nCell), formula.Int(2)),
		formula.Empty(),
		formula.Fn("IF",
			formula.Bin("=", totalVar, formula.Int(0)),
			formula.Int(0),
			formula.Bin("*",
				formula.Group(formula.Bin("/", formula.Raw(kCell),
					formula.Group(formula.Bin("-", formula.Raw(kCell), formula.Int(1))))),
				formula.Group(formula.Bin("-", formula.Int(1),
					formula.Bin("/", varSum, totalVar)))))))

	s.probe("valid_n", ProbeValidN, nCell, func(p *Probe) { p.Columns = items })
	s.probe("cronbach_alpha", ProbeAlpha, alphaCell, func(p *Probe) { p.Columns = items })

	s.sheet.DataRegion = Region{FirstRow: 3, FirstCol: 2, LastRow: 7 + k, LastCol: len(headers)}
	return nil
}
