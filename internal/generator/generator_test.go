package generator

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"veristat/internal/dataset"
	"veristat/internal/model"
)

func testProfile(t *testing.T) *dataset.Profile {
	t.Helper()
	headers := []string{"score", "rating", "city", "grp"}
	rows := [][]string{
		{"85", "4", "北京", "A"},
		{"90", "5", "上海", "B"},
		{"78", "3", "北京", "A"},
		{"92", "4", "广州", "B"},
		{"88", "5", "上海", "A"},
		{"95", "2", "北京", "B"},
		{"70", "4", "广州", "A"},
		{"80", "NA", "上海", "B"},
	}
	p, err := dataset.Build(headers, rows)
	if err != nil {
		t.Fatalf("Build profile: %v", err)
	}
	return p
}

func testTask(typ model.TaskType, sheet string) *model.TaskSpec {
	return &model.TaskSpec{
		ID:          "3.1",
		Phase:       model.PhaseDescriptive,
		Type:        typ,
		Name:        "测试任务",
		OutputSheet: sheet,
	}
}

func TestGenerateDescriptiveDeterministic(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskDescriptiveStats, "DESC")

	a, err := New(p, DefaultOptions()).Generate(task)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := New(p, DefaultOptions()).Generate(task)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(a.Writes, b.Writes) {
		t.Fatalf("writes not deterministic")
	}
	if !reflect.DeepEqual(a.Probes, b.Probes) {
		t.Fatalf("probes not deterministic")
	}
}

func TestDescriptiveLayout(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	s, err := New(p, DefaultOptions()).Generate(testTask(model.TaskDescriptiveStats, "DESC"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 两个数值列，各 10 个统计量探针
	if len(s.Probes) != 20 {
		t.Fatalf("probes want=20 got=%d", len(s.Probes))
	}
	if s.FormulaCount() == 0 {
		t.Fatalf("no formulas emitted")
	}
	probe, ok := s.ProbeByName("score/mean")
	if !ok {
		t.Fatalf("score/mean probe missing")
	}
	if probe.Kind != ProbeMean || probe.Columns[0] != "score" {
		t.Fatalf("probe metadata: %+v", probe)
	}

	// 数据区域内的写入全部是公式
	for _, w := range s.Writes {
		if w.Formula != "" && !strings.HasPrefix(w.Formula, "=") {
			t.Fatalf("formula without = prefix: %q", w.Formula)
		}
	}
	if s.DataRegion.Empty() {
		t.Fatalf("empty data region")
	}
}

func TestGenerateUnknownColumnYieldsErrorSheet(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskDescriptiveStats, "DESC")
	task.Columns.ColumnNames = []string{"ghost"}

	s, err := New(p, DefaultOptions()).Generate(task)
	if err == nil {
		t.Fatalf("expected InputError")
	}
	var inputErr *model.InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("want InputError got %T", err)
	}
	if s == nil || s.ErrorMarker == "" {
		t.Fatalf("error sheet missing marker: %+v", s)
	}
	if s.FormulaCount() != 0 {
		t.Fatalf("error sheet must not contain formulas")
	}
}

func TestReliabilityHelperColumnsInjective(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskReliabilityAlpha, "RELIABILITY")
	task.ScaleItems = []string{"score", "rating"}

	s, err := New(p, DefaultOptions()).Generate(task)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 总分 + 每条目(值/余分) = 2k+1 个辅助列
	if len(s.Helpers) != 5 {
		t.Fatalf("helpers want=5 got=%d", len(s.Helpers))
	}
	seen := make(map[int]bool)
	for _, h := range s.Helpers {
		if h.Column < DefaultOptions().HelperBaseColumn {
			t.Fatalf("helper below base column: %+v", h)
		}
		if seen[h.Column] {
			t.Fatalf("helper column reused: %d", h.Column)
		}
		seen[h.Column] = true
	}

	if _, ok := s.ProbeByName("cronbach_alpha"); !ok {
		t.Fatalf("alpha probe missing")
	}
}

func TestReliabilityRejectsCategoricalItem(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskReliabilityAlpha, "RELIABILITY")
	task.ScaleItems = []string{"score", "city"}

	if _, err := New(p, DefaultOptions()).Generate(task); err == nil {
		t.Fatalf("categorical scale item should be rejected")
	}
}

func TestFrequencyLevelsSorted(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskFrequencyTables, "FREQ")
	task.Columns.ColumnNames = []string{"city"}

	s, err := New(p, DefaultOptions()).Generate(task)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var values []string
	for _, probe := range s.Probes {
		if probe.Kind == ProbeFrequency {
			values = append(values, probe.Value.(string))
		}
	}
	want := []string{"上海", "北京", "广州"}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("levels not sorted: %v", values)
	}
}

func TestFrequencyCumulativePercent(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskFrequencyTables, "FREQ")
	task.Columns.ColumnNames = []string{"city"}

	s, err := New(p, DefaultOptions()).Generate(task)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 每个取值一个累计百分比探针，携带到该取值为止的水平前缀
	var prefixes [][]any
	for _, probe := range s.Probes {
		if probe.Kind != ProbeCumulativePct {
			continue
		}
		prefix, ok := probe.Value.([]any)
		if !ok {
			t.Fatalf("cumulative probe without prefix: %+v", probe)
		}
		prefixes = append(prefixes, prefix)
	}
	want := [][]any{
		{"上海"},
		{"上海", "北京"},
		{"上海", "北京", "广州"},
	}
	if !reflect.DeepEqual(prefixes, want) {
		t.Fatalf("cumulative prefixes: %v", prefixes)
	}
}

func TestCorrelationMatrixStructure(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	s, err := New(p, DefaultOptions()).Generate(testTask(model.TaskCorrelationMatrix, "CORR"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	byCell := make(map[string]string)
	for _, w := range s.Writes {
		if w.Formula != "" {
			byCell[w.Cell] = w.Formula
		}
	}
	// 两变量矩阵：对角线常量 1，下三角引用上三角镜像单元格
	if byCell["B4"] != "=1" || byCell["C5"] != "=1" {
		t.Fatalf("diagonal: B4=%q C5=%q", byCell["B4"], byCell["C5"])
	}
	if byCell["B5"] != "=C4" {
		t.Fatalf("lower triangle mirror: %q", byCell["B5"])
	}
	if !strings.HasPrefix(byCell["C4"], "=ROUND(CORREL(") {
		t.Fatalf("upper triangle: %q", byCell["C4"])
	}

	// 相关探针只挂在上三角
	matrixProbes := 0
	for _, probe := range s.Probes {
		if probe.Kind == ProbeCorrelation {
			matrixProbes++
		}
	}
	if matrixProbes != 1 {
		t.Fatalf("correlation probes want=1 got=%d", matrixProbes)
	}
}

func TestEffectSizesWithoutGroupBy(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	s, err := New(p, DefaultOptions()).Generate(testTask(model.TaskEffectSizes, "EFFECT"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// 无分组列时给出相关效应量区块
	for _, name := range []string{"score~rating/r", "score~rating/r2", "score~rating/fisher_z"} {
		if _, ok := s.ProbeByName(name); !ok {
			t.Fatalf("probe %s missing", name)
		}
	}
	if _, ok := s.ProbeByName("score/n1"); ok {
		t.Fatalf("group block emitted without group_by")
	}

	// 只有一个数值变量且无分组列时拒绝
	single := testTask(model.TaskEffectSizes, "EFFECT")
	single.Columns.ColumnNames = []string{"score"}
	if _, err := New(p, DefaultOptions()).Generate(single); err == nil {
		t.Fatalf("single column without group_by should be rejected")
	}
}

func TestEffectSizesGroupedIncludesBothBlocks(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskEffectSizes, "EFFECT")
	task.GroupBy = "grp"

	s, err := New(p, DefaultOptions()).Generate(task)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, name := range []string{"score/cohens_d", "rating/cohens_d", "score~rating/r"} {
		if _, ok := s.ProbeByName(name); !ok {
			t.Fatalf("probe %s missing", name)
		}
	}
}

func TestGroupComparisonUsesFirstTwoLevels(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskGroupComparison, "TTEST")
	task.GroupBy = "grp"
	task.Columns.ColumnNames = []string{"score"}

	s, err := New(p, DefaultOptions()).Generate(task)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	n1, ok := s.ProbeByName("score/n1")
	if !ok || n1.Group != "A" {
		t.Fatalf("first group probe: %+v", n1)
	}
	n2, ok := s.ProbeByName("score/n2")
	if !ok || n2.Group != "B" {
		t.Fatalf("second group probe: %+v", n2)
	}
	if _, ok := s.ProbeByName("score/f_test_p"); !ok {
		t.Fatalf("homogeneity probe missing")
	}
}

func TestGroupComparisonRequiresGroupBy(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskGroupComparison, "TTEST")
	if _, err := New(p, DefaultOptions()).Generate(task); err == nil {
		t.Fatalf("missing group_by should be rejected")
	}
}

func TestCrosstabProbesCarryLevelLists(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskCrossTabulation, "CROSSTAB")
	task.Columns.ColumnNames = []string{"city", "grp"}

	s, err := New(p, DefaultOptions()).Generate(task)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	chi, ok := s.ProbeByName("chi_square")
	if !ok {
		t.Fatalf("chi_square probe missing")
	}
	rows, ok := chi.Value.([]any)
	if !ok || len(rows) != 3 {
		t.Fatalf("row levels: %v", chi.Value)
	}
	cols, ok := chi.ValueCol.([]any)
	if !ok || len(cols) != 2 {
		t.Fatalf("col levels: %v", chi.ValueCol)
	}
}

func TestCorrelationRequiresTwoNumericColumns(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	task := testTask(model.TaskCorrelationMatrix, "CORR")
	task.Columns.ColumnNames = []string{"score"}
	if _, err := New(p, DefaultOptions()).Generate(task); err == nil {
		t.Fatalf("single column correlation should be rejected")
	}
}

func TestAllTaskTypesDispatch(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	for _, typ := range model.AllTaskTypes {
		task := testTask(typ, "SHEET_"+strings.ToUpper(string(typ)))
		task.OutputSheet = strings.ReplaceAll(task.OutputSheet, "-", "_")
		switch typ {
		case model.TaskReliabilityAlpha:
			task.ScaleItems = []string{"score", "rating"}
		case model.TaskGroupComparison, model.TaskEffectSizes:
			task.GroupBy = "grp"
		}
		s, err := New(p, DefaultOptions()).Generate(task)
		if err != nil {
			t.Fatalf("type %s: %v", typ, err)
		}
		if s.FormulaCount() == 0 {
			t.Fatalf("type %s emitted no formulas", typ)
		}
		if len(s.Probes) == 0 {
			t.Fatalf("type %s emitted no probes", typ)
		}
	}
}
