package dataset

import (
	"math"
	"testing"
)

func sampleHeaders() []string {
	return []string{"score", "city", "active", "note"}
}

func sampleRows() [][]string {
	return [][]string{
		{"85", "北京", "true", "x"},
		{"90", "上海", "FALSE", ""},
		{"78", "北京", "True", "y"},
		{"NA", "广州", "false", "z"},
		{" 88 ", "上海", "TRUE", "x"},
		{"92", "null", "false", "y"},
		{"81", "北京", "true", "-"},
	}
}

func TestBuildClassifiesColumns(t *testing.T) {
	t.Parallel()

	p, err := Build(sampleHeaders(), sampleRows())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Rows != 7 {
		t.Fatalf("rows want=7 got=%d", p.Rows)
	}

	score, ok := p.Column("score")
	if !ok || score.Type != ColumnNumeric || score.Rule != RuleNumericCoerce {
		t.Fatalf("score column: %+v", score)
	}
	if score.Letter != "A" || score.Index != 1 {
		t.Fatalf("score coordinates: %+v", score)
	}

	city, ok := p.Column("city")
	if !ok || city.Type != ColumnCategorical || city.Boolean {
		t.Fatalf("city column: %+v", city)
	}

	active, ok := p.Column("active")
	if !ok || !active.Boolean {
		t.Fatalf("active should be boolean categorical: %+v", active)
	}
}

func TestSmallSampleClassification(t *testing.T) {
	t.Parallel()

	// 全数值的小样本列仍判数值列，80% 容错判定才受最小样本量约束
	p, err := Build([]string{"amount", "tag"}, [][]string{
		{"1.5", "a"},
		{"2", "1"},
		{"3.25", "b"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	amount, ok := p.Column("amount")
	if !ok || amount.Type != ColumnNumeric {
		t.Fatalf("all-numeric small column: %+v", amount)
	}
	series, ok := p.NumericSeries("amount")
	if !ok || series[2] != 3.25 {
		t.Fatalf("amount series: %v", series)
	}

	// 混入脏值的小样本列不走容错判定，保持分类列
	tag, ok := p.Column("tag")
	if !ok || tag.Type != ColumnCategorical {
		t.Fatalf("mixed small column: %+v", tag)
	}
}

func TestBuildRejectsZeroColumns(t *testing.T) {
	t.Parallel()

	if _, err := Build(nil, nil); err == nil {
		t.Fatalf("expected error for zero columns")
	}
}

func TestNumericCoercionAndMissing(t *testing.T) {
	t.Parallel()

	p, _ := Build(sampleHeaders(), sampleRows())
	series, ok := p.NumericSeries("score")
	if !ok {
		t.Fatalf("score series missing")
	}
	if !math.IsNaN(series[3]) {
		t.Fatalf("NA should coerce to NaN, got %v", series[3])
	}
	// 首尾空白剥除后转数值
	if series[4] != 88 {
		t.Fatalf("whitespace trim failed: %v", series[4])
	}
	if got := p.MissingCount("score"); got != 1 {
		t.Fatalf("score missing want=1 got=%d", got)
	}

	vals := p.NumericValues("score")
	if len(vals) != 6 {
		t.Fatalf("valid count want=6 got=%d", len(vals))
	}
}

func TestNullTokenNormalization(t *testing.T) {
	t.Parallel()

	p, _ := Build(sampleHeaders(), sampleRows())
	// "null" 与 "-" 归一为缺失
	if got := p.MissingCount("city"); got != 1 {
		t.Fatalf("city missing want=1 got=%d", got)
	}
	if got := p.MissingCount("note"); got != 2 {
		t.Fatalf("note missing want=2 got=%d", got)
	}
}

func TestCleanedCellTypes(t *testing.T) {
	t.Parallel()

	p, _ := Build(sampleHeaders(), sampleRows())
	if v := p.CleanedCell("score", 0); v != 85.0 {
		t.Fatalf("numeric cleaned cell: %v", v)
	}
	if v := p.CleanedCell("city", 0); v != "北京" {
		t.Fatalf("categorical cleaned cell: %v", v)
	}
	if v := p.CleanedCell("active", 0); v != true {
		t.Fatalf("boolean cleaned cell: %v", v)
	}
	if v := p.CleanedCell("score", 3); v != nil {
		t.Fatalf("missing cleaned cell want nil got %v", v)
	}
}

func TestLevelsFirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	p, _ := Build(sampleHeaders(), sampleRows())
	levels := p.Levels("city")
	want := []any{"北京", "上海", "广州"}
	if len(levels) != len(want) {
		t.Fatalf("levels: %v", levels)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Fatalf("levels order want=%v got=%v", want, levels)
		}
	}
}

func TestZScores(t *testing.T) {
	t.Parallel()

	p, _ := Build([]string{"v"}, [][]string{{"1"}, {"2"}, {"3"}, {"4"}, {"5"}})
	zs, ok := p.ZScores("v")
	if !ok {
		t.Fatalf("ZScores failed")
	}
	// 均值 3，SD=1.5811
	if math.Abs(zs[0]+1.2649110640673518) > 1e-9 {
		t.Fatalf("z[0] got=%v", zs[0])
	}
	if math.Abs(zs[2]) > 1e-12 {
		t.Fatalf("z at mean want=0 got=%v", zs[2])
	}
}
