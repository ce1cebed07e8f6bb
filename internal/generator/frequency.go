package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/model"
)

// buildFrequencyTables 频数表：每个分类变量一个纵向区块，
// 取值按确定性排序枚举，超出上限的取值归入“其他”行。
// 百分比分母为有效观测数单元格，保证公式与地面真值同一口径。
func (s *session) buildFrequencyTables() error {
	cols, err := s.selectColumns(dataset.ColumnCategorical)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return model.NewInputError(s.task.ID, "频数表需要至少一个分类列")
	}

	s.label(1, 1, s.task.Name)
	row := 3
	lastCol := 4
	firstDataRow := 0

	for _, name := range cols {
		col, err := s.mustColumn(name)
		if err != nil {
			return err
		}
		r := s.dataRange(col)
		levels := sortedLevels(s.g.profile.Levels(name))
		truncated := false
		if len(levels) > s.g.opts.MaxFrequencyLevels {
			levels = levels[:s.g.opts.MaxFrequencyLevels]
			truncated = true
		}

		s.label(1, row, name)
		row++
		s.label(1, row, "取值")
		s.label(2, row, "频数")
		s.label(3, row, "百分比")
		s.label(4, row, "累计百分比")
		row++
		if firstDataRow == 0 {
			firstDataRow = row
		}

		// 有效观测数在区块末行，先占位记下行号
		blockStart := row
		var countCells []string
		for _, lv := range levels {
			s.label(1, row, levelLabel(lv))
			cell := s.formula(2, row, formula.Fn("COUNTIF", r, levelCriterion(lv)))
			countCells = append(countCells, cell)
			row++
		}

		otherRow := 0
		if truncated {
			s.label(1, row, "其他")
			otherRow = row
			row++
		}

		validRow := row
		s.label(1, validRow, "有效合计")
		// 清洗 sheet 的缺失单元格是求值为空串的公式，COUNTA 会计入，
		// 有效数必须用 <>"" 判定
		validCell := s.formula(2, validRow, formula.Fn("SUMPRODUCT",
			formula.Raw("--("+formula.Render(r)+`<>"")`)))
		row++

		if truncated {
			s.formulaAt(formula.CellName(2, otherRow), formula.Bin("-",
				formula.Raw(validCell),
				formula.Fn("SUM", formula.Raw(countCells[0]+":"+countCells[len(countCells)-1]))))
		}

		// 百分比与累计百分比列
		for i, lv := range levels {
			pctCell := formula.CellName(3, blockStart+i)
			s.formulaAt(pctCell, formula.Fn("IF",
				formula.Bin("=", formula.Raw(validCell), formula.Int(0)),
				formula.Empty(),
				formula.Bin("/", formula.Raw(countCells[i]), formula.Raw(validCell))))
			// 累计 = 枚举顺序中到当前取值为止的频数和 / 有效数
			cumCell := formula.CellName(4, blockStart+i)
			s.formulaAt(cumCell, formula.Fn("IF",
				formula.Bin("=", formula.Raw(validCell), formula.Int(0)),
				formula.Empty(),
				formula.Bin("/",
					formula.Fn("SUM", formula.Raw(countCells[0]+":"+countCells[i])),
					formula.Raw(validCell))))

			lv := lv
			prefix := append([]any(nil), levels[:i+1]...)
			s.probe(name+"/freq/"+formula.Render(formula.Criterion(lv)), ProbeFrequency, countCells[i], func(p *Probe) {
				p.Columns = []string{name}
				p.Value = lv
			})
			s.probe(name+"/pct/"+formula.Render(formula.Criterion(lv)), ProbePercent, pctCell, func(p *Probe) {
				p.Columns = []string{name}
				p.Value = lv
			})
			s.probe(name+"/cum_pct/"+formula.Render(formula.Criterion(lv)), ProbeCumulativePct, cumCell, func(p *Probe) {
				p.Columns = []string{name}
				p.Value = prefix
			})
		}

		s.probe(name+"/valid_n", ProbeValidN, validCell, func(p *Probe) {
			p.Columns = []string{name}
		})
		row += 2 // 区块间空两行
	}

	s.sheet.DataRegion = Region{FirstRow: firstDataRow, FirstCol: 2, LastRow: row - 3, LastCol: lastCol}
	return nil
}
