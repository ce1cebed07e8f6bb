package generator

import (
	"veristat/internal/dataset"
	"veristat/internal/formula"
)

// buildDataDictionary 数据字典：逐列的坐标、类型、清洗规则与取值概况。
// 唯一值计数用经典 SUMPRODUCT/COUNTIF 公式，仅数值列给最小/最大。
func (s *session) buildDataDictionary() error {
	p := s.g.profile
	s.label(1, 1, s.task.Name)

	headers := []string{"列名", "数据列", "类型", "清洗规则", "有效N", "唯一值数", "最小值", "最大值"}
	for i, h := range headers {
		s.label(i+1, 3, h)
	}

	row := 4
	for i := range p.Columns {
		col := &p.Columns[i]
		r := s.dataRange(col)
		rTxt := formula.Render(r)

		s.label(1, row, col.Name)
		s.label(2, row, col.Letter)
		s.label(3, row, string(col.Type))
		s.label(4, row, string(col.Rule))
		validCell := s.formula(5, row, s.validCountExpr(col))
		// 唯一值数：=SUMPRODUCT((r<>"")/COUNTIF(r,r&""))
		s.formula(6, row, formula.Fn("SUMPRODUCT",
			formula.Raw("("+rTxt+`<>"")/COUNTIF(`+rTxt+","+rTxt+`&"")`)))
		if col.Type == dataset.ColumnNumeric {
			cnt := formula.Fn("COUNT", r)
			minCell := s.formula(7, row, guardMin(cnt, 1, formula.Fn("MIN", r)))
			maxCell := s.formula(8, row, guardMin(cnt, 1, formula.Fn("MAX", r)))
			name := col.Name
			s.probe(name+"/min", ProbeMin, minCell, func(pr *Probe) { pr.Columns = []string{name} })
			s.probe(name+"/max", ProbeMax, maxCell, func(pr *Probe) { pr.Columns = []string{name} })
		}

		name := col.Name
		s.probe(name+"/valid_n", ProbeValidN, validCell, func(pr *Probe) { pr.Columns = []string{name} })
		row++
	}

	s.sheet.DataRegion = Region{FirstRow: 4, FirstCol: 5, LastRow: row - 1, LastCol: len(headers)}
	return nil
}
