package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/model"
)

// crosstabVars 解析列联表的行变量与列变量：
// 显式给出两列时用前两列，否则第一目标列 × group_by。
func (s *session) crosstabVars() (rowVar, colVar *dataset.Column, err error) {
	names := s.task.Columns.ColumnNames
	var rn, cn string
	switch {
	case len(names) >= 2:
		rn, cn = names[0], names[1]
	case len(names) == 1 && s.task.GroupBy != "":
		rn, cn = names[0], s.task.GroupBy
	default:
		cats := s.g.profile.CategoricalColumns()
		if len(cats) < 2 {
			return nil, nil, model.NewInputError(s.task.ID, "列联表需要两个分类列，数据集只有 %d 个", len(cats))
		}
		rn, cn = cats[0], cats[1]
	}
	if rowVar, err = s.mustColumn(rn); err != nil {
		return nil, nil, err
	}
	if colVar, err = s.mustColumn(cn); err != nil {
		return nil, nil, err
	}
	return rowVar, colVar, nil
}

// buildCrossTabulation 列联表 + 独立性卡方检验 + Cramer's V。
// 观测计数由 COUNTIFS 枚举，期望计数由边际合计单元格推出，
// 卡方用 SUMPRODUCT 在观测/期望两个区域上聚合。
func (s *session) buildCrossTabulation() error {
	rowVar, colVar, err := s.crosstabVars()
	if err != nil {
		return err
	}

	rowLevels := sortedLevels(s.g.profile.Levels(rowVar.Name))
	colLevels := sortedLevels(s.g.profile.Levels(colVar.Name))
	if len(rowLevels) > s.g.opts.MaxCrosstabLevels {
		rowLevels = rowLevels[:s.g.opts.MaxCrosstabLevels]
	}
	if len(colLevels) > s.g.opts.MaxCrosstabLevels {
		colLevels = colLevels[:s.g.opts.MaxCrosstabLevels]
	}
	if len(rowLevels) < 2 || len(colLevels) < 2 {
		return model.NewInputError(s.task.ID,
			"列联表两个维度都需要至少 2 个水平: %s=%d, %s=%d",
			rowVar.Name, len(rowLevels), colVar.Name, len(colLevels))
	}
	nr, nc := len(rowLevels), len(colLevels)

	rr, cr := s.dataRange(rowVar), s.dataRange(colVar)
	pair := []string{rowVar.Name, colVar.Name}

	s.label(1, 1, s.task.Name)
	s.label(1, 2, "观测计数: "+rowVar.Name+" × "+colVar.Name)

	// 观测表：第 4 行列头，末行/末列为边际合计
	obsHeader := 4
	for j, lv := range colLevels {
		s.label(j+2, obsHeader, levelLabel(lv))
	}
	s.label(nc+2, obsHeader, "合计")
	obsFirst := obsHeader + 1
	for i, rlv := range rowLevels {
		row := obsFirst + i
		s.label(1, row, levelLabel(rlv))
		for j, clv := range colLevels {
			cell := s.formula(j+2, row, formula.Fn("COUNTIFS",
				rr, levelCriterion(rlv),
				cr, levelCriterion(clv)))
			rlv, clv := rlv, clv
			s.probe(
				"obs/"+formula.Render(formula.Criterion(rlv))+"/"+formula.Render(formula.Criterion(clv)),
				ProbeObserved, cell, func(p *Probe) {
					p.Columns = pair
					p.Value = rlv
					p.ValueCol = clv
				})
		}
		// 行合计
		s.formula(nc+2, row, formula.Fn("SUM",
			formula.Raw(formula.CellName(2, row)+":"+formula.CellName(nc+1, row))))
	}
	totalRow := obsFirst + nr
	s.label(1, totalRow, "合计")
	for j := 0; j < nc; j++ {
		s.formula(j+2, totalRow, formula.Fn("SUM",
			formula.Raw(formula.CellName(j+2, obsFirst)+":"+formula.CellName(j+2, totalRow-1))))
	}
	grandCell := s.formula(nc+2, totalRow, formula.Fn("SUM",
		formula.Raw(formula.CellName(2, totalRow)+":"+formula.CellName(nc+1, totalRow))))
	s.probe("grand_total", ProbeGrandTotal, grandCell, func(p *Probe) {
		p.Columns = pair
		p.Value = rowLevels
		p.ValueCol = colLevels
	})

	// 期望表 E_ij = 行合计·列合计/总计
	expTitle := totalRow + 2
	s.label(1, expTitle, "期望计数")
	expHeader := expTitle + 1
	for j, lv := range colLevels {
		s.label(j+2, expHeader, levelLabel(lv))
	}
	expFirst := expHeader + 1
	for i := range rowLevels {
		row := expFirst + i
		s.label(1, row, levelLabel(rowLevels[i]))
		rowTot := formula.CellName(nc+2, obsFirst+i)
		for j := 0; j < nc; j++ {
			colTot := formula.CellName(j+2, totalRow)
			s.formula(j+2, row, formula.Bin("/",
				formula.Bin("*", formula.Raw(rowTot), formula.Raw(colTot)),
				formula.Raw(grandCell)))
		}
	}
	expLast := expFirst + nr - 1

	obsRange := formula.CellName(2, obsFirst) + ":" + formula.CellName(nc+1, obsFirst+nr-1)
	expRange := formula.CellName(2, expFirst) + ":" + formula.CellName(nc+1, expLast)

	// 检验结果
	statRow := expLast + 2
	s.label(1, statRow, "χ²")
	chiCell := s.formula(2, statRow, formula.Fn("SUMPRODUCT",
		formula.Raw("("+obsRange+"-"+expRange+")^2/"+expRange)))
	s.label(1, statRow+1, "df")
	dfCell := s.formula(2, statRow+1, formula.Bin("*",
		formula.Group(formula.Bin("-", formula.Int(nr), formula.Int(1))),
		formula.Group(formula.Bin("-", formula.Int(nc), formula.Int(1)))))
	s.label(1, statRow+2, "p")
	pCell := s.formula(2, statRow+2, formula.Fn("CHISQ.DIST.RT",
		formula.Raw(chiCell), formula.Raw(dfCell)))
	s.label(1, statRow+3, "Cramer's V")
	minDim := nr - 1
	if nc-1 < minDim {
		minDim = nc - 1
	}
	vCell := s.formula(2, statRow+3, formula.Fn("SQRT",
		formula.Bin("/", formula.Raw(chiCell),
			formula.Group(formula.Bin("*", formula.Raw(grandCell), formula.Int(minDim))))))

	// 卡方统计量的口径是枚举出的水平子集，探针携带两个水平列表
	// 以便验证器重建同一张观测表
	tableProbe := func(p *Probe) {
		p.Columns = pair
		p.Value = rowLevels
		p.ValueCol = colLevels
	}
	s.probe("chi_square", ProbeChiSquare, chiCell, tableProbe)
	s.probe("chi_df", ProbeChiDF, dfCell, tableProbe)
	s.probe("chi_p", ProbeChiP, pCell, tableProbe)
	s.probe("cramers_v", ProbeCramersV, vCell, tableProbe)

	s.sheet.DataRegion = Region{FirstRow: obsFirst, FirstCol: 2, LastRow: statRow + 3, LastCol: nc + 2}
	return nil
}
