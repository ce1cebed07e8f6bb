package generator

import (
	"path/filepath"
	"strings"
	"testing"

	"veristat/internal/model"
)

func TestWorkbookRawAndCleanedSheets(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	g := New(p, DefaultOptions())
	wb, err := NewWorkbook(g)
	if err != nil {
		t.Fatalf("NewWorkbook: %v", err)
	}
	defer wb.Close()
	f := wb.File()

	// 原始 sheet：表头与字面值
	if got, _ := f.GetCellValue(RawSheetName, "A1"); got != "score" {
		t.Fatalf("raw header got=%q", got)
	}
	if got, _ := f.GetCellValue(RawSheetName, "A2"); got != "85" {
		t.Fatalf("raw value got=%q", got)
	}
	if fml, _ := f.GetCellFormula(RawSheetName, "A2"); fml != "" {
		t.Fatalf("raw sheet must not contain formulas, got %q", fml)
	}

	// 清洗 sheet：逐格公式
	fml, err := f.GetCellFormula(CleanedSheetName, "A2")
	if err != nil || fml == "" {
		t.Fatalf("cleaned cell must be a formula: %q err=%v", fml, err)
	}
	if !strings.Contains(fml, RawSheetName) {
		t.Fatalf("cleaned formula must reference raw sheet: %q", fml)
	}
	if !strings.Contains(fml, "VALUE(") {
		t.Fatalf("numeric cleaning must coerce via VALUE: %q", fml)
	}

	// 分类列走文本清洗
	cfml, _ := f.GetCellFormula(CleanedSheetName, "C2")
	if strings.Contains(cfml, "VALUE(") {
		t.Fatalf("categorical cleaning must not coerce: %q", cfml)
	}
}

func TestWorkbookApplyAndSave(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	g := New(p, DefaultOptions())
	s, err := g.Generate(testTask(model.TaskDescriptiveStats, "DESC"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	wb, err := NewWorkbook(g)
	if err != nil {
		t.Fatalf("NewWorkbook: %v", err)
	}
	defer wb.Close()
	if err := wb.Apply(s); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// 同名 sheet 拒绝覆盖
	if err := wb.Apply(s); err == nil {
		t.Fatalf("duplicate sheet should be rejected")
	}

	// 公式落盘
	probe, _ := s.ProbeByName("score/mean")
	fml, err := wb.File().GetCellFormula("DESC", probe.Cell)
	if err != nil || fml == "" {
		t.Fatalf("probe cell must hold a formula: %q err=%v", fml, err)
	}

	path := filepath.Join(t.TempDir(), "artifact.xlsx")
	if err := wb.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := wb.Save(filepath.Join(t.TempDir(), "artifact.txt")); err == nil {
		t.Fatalf("non-xlsx path should be rejected")
	}
}

func TestWorkbookErrorSheetHasMarkerOnly(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	g := New(p, DefaultOptions())
	task := testTask(model.TaskDescriptiveStats, "BROKEN")
	task.Columns.ColumnNames = []string{"ghost"}
	s, _ := g.Generate(task)

	wb, err := NewWorkbook(g)
	if err != nil {
		t.Fatalf("NewWorkbook: %v", err)
	}
	defer wb.Close()
	if err := wb.Apply(s); err != nil {
		t.Fatalf("apply error sheet: %v", err)
	}
	got, _ := wb.File().GetCellValue("BROKEN", "A1")
	if !strings.HasPrefix(got, "错误:") {
		t.Fatalf("error marker got=%q", got)
	}
}
