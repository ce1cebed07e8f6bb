package qc

import (
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"veristat/internal/generator"
)

func newSheetFile(t *testing.T, name string) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	if _, err := f.NewSheet(name); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	return f
}

func testSheet(name string, region generator.Region) *generator.Sheet {
	return &generator.Sheet{Name: name, TaskID: "3.1", DataRegion: region}
}

func TestInspectPassesFormulaDominatedRegion(t *testing.T) {
	t.Parallel()

	f := newSheetFile(t, "DESC")
	defer f.Close()
	// 4 格区域：3 公式 + 1 字面值
	for _, cell := range []string{"B2", "B3", "B4"} {
		if err := f.SetCellFormula("DESC", cell, "=COUNT('00_CLEANED'!A2:A9)"); err != nil {
			t.Fatalf("SetCellFormula: %v", err)
		}
	}
	if err := f.SetCellValue("DESC", "B5", "备注"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}

	v, err := NewGate(0).Inspect(f, testSheet("DESC", generator.Region{FirstRow: 2, FirstCol: 2, LastRow: 5, LastCol: 2}))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !v.Passed {
		t.Fatalf("want pass got %+v", v)
	}
	if v.Metrics.FormulaCells != 3 || v.Metrics.ValueCells != 1 {
		t.Fatalf("metrics: %+v", v.Metrics)
	}
	if v.Metrics.CoveragePct != 75 {
		t.Fatalf("coverage want=75 got=%v", v.Metrics.CoveragePct)
	}
}

func TestInspectRejectsLiteralStuffing(t *testing.T) {
	t.Parallel()

	f := newSheetFile(t, "DESC")
	defer f.Close()
	// 字面值灌注：1 公式 + 3 字面值，占比 25%
	if err := f.SetCellFormula("DESC", "B2", "=1+1"); err != nil {
		t.Fatalf("SetCellFormula: %v", err)
	}
	for i, cell := range []string{"B3", "B4", "B5"} {
		if err := f.SetCellValue("DESC", cell, 10+i); err != nil {
			t.Fatalf("SetCellValue: %v", err)
		}
	}

	v, err := NewGate(0).Inspect(f, testSheet("DESC", generator.Region{FirstRow: 2, FirstCol: 2, LastRow: 5, LastCol: 2}))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if v.Passed || len(v.HardFailures) != 1 {
		t.Fatalf("want coverage rejection got %+v", v)
	}
	if !strings.Contains(v.HardFailures[0], "公式占比") {
		t.Fatalf("failure reason: %q", v.HardFailures[0])
	}
}

func TestInspectMissingSheetIsHardFailure(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer f.Close()
	v, err := NewGate(0).Inspect(f, testSheet("GONE", generator.Region{FirstRow: 1, FirstCol: 1, LastRow: 1, LastCol: 1}))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if v.Passed || len(v.HardFailures) == 0 {
		t.Fatalf("missing sheet must fail: %+v", v)
	}
}

func TestInspectErrorMarkerNotVerifiable(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer f.Close()
	s := testSheet("BROKEN", generator.Region{})
	s.ErrorMarker = "未知列: ghost"
	v, err := NewGate(0).Inspect(f, s)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !v.NotVerifiable || v.Passed {
		t.Fatalf("error marker sheet: %+v", v)
	}
}

func TestInspectWarnsOnErrorValues(t *testing.T) {
	t.Parallel()

	f := newSheetFile(t, "DESC")
	defer f.Close()
	// 2 公式 + 1 求值为错误值的单元格，覆盖率仍过线
	for _, cell := range []string{"B2", "B3"} {
		if err := f.SetCellFormula("DESC", cell, "=1+1"); err != nil {
			t.Fatalf("SetCellFormula: %v", err)
		}
	}
	if err := f.SetCellValue("DESC", "B4", "#DIV/0!"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}

	v, err := NewGate(0).Inspect(f, testSheet("DESC", generator.Region{FirstRow: 2, FirstCol: 2, LastRow: 4, LastCol: 2}))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	// 错误值是警告不是硬性失败
	if !v.Passed || v.Metrics.ErrorCells != 1 || len(v.Warnings) != 1 {
		t.Fatalf("error value handling: %+v", v)
	}
	if !strings.Contains(v.Warnings[0], "#DIV/0!") {
		t.Fatalf("warning: %q", v.Warnings[0])
	}
}

func TestInspectWarnsOnCrossSheetReference(t *testing.T) {
	t.Parallel()

	f := newSheetFile(t, "DESC")
	defer f.Close()
	if _, err := f.NewSheet("OTHER_SHEET"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	// 引用原始/清洗/自身 sheet 不警告；引用存在的分析 sheet 与
	// 不存在的 sheet 各自报出
	if err := f.SetCellFormula("DESC", "B2", "=COUNT('00_CLEANED'!A2:A9)+DESC!B3+OTHER_SHEET!C1+GHOST!D1"); err != nil {
		t.Fatalf("SetCellFormula: %v", err)
	}

	v, err := NewGate(0).Inspect(f, testSheet("DESC", generator.Region{FirstRow: 2, FirstCol: 2, LastRow: 2, LastCol: 2}))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !v.Passed || len(v.Warnings) != 2 {
		t.Fatalf("cross-sheet warnings: %+v", v)
	}
	if !strings.Contains(v.Warnings[0], "OTHER_SHEET") || !strings.Contains(v.Warnings[0], "其他分析 sheet") {
		t.Fatalf("analysis ref warning: %q", v.Warnings[0])
	}
	if !strings.Contains(v.Warnings[1], "GHOST") || !strings.Contains(v.Warnings[1], "不存在") {
		t.Fatalf("missing ref warning: %q", v.Warnings[1])
	}
}

func TestSheetRefs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		fml  string
		want []string
	}{
		{"=SUM(A1:A3)", nil},
		{"=COUNT('00_RAW_DATA'!A:A)", []string{"00_RAW_DATA"}},
		{"=DESC!B2+'My Sheet'!C3", []string{"DESC", "My Sheet"}},
		{"='O''Brien'!A1", []string{"O'Brien"}},
	}
	for _, c := range cases {
		if got := sheetRefs(c.fml); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("sheetRefs(%q) want=%v got=%v", c.fml, c.want, got)
		}
	}
}
