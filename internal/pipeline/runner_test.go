package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"veristat/internal/dataset"
	"veristat/internal/generator"
	"veristat/internal/model"
	"veristat/internal/qc"
	"veristat/internal/store"
)

// noopEngine 不做任何重算，用于只关心编排行为的测试
type noopEngine struct{ calls int }

func (e *noopEngine) Recalc(ctx context.Context, path string) error {
	e.calls++
	return nil
}

func testProfile(t *testing.T) *dataset.Profile {
	t.Helper()
	p, err := dataset.Build(
		[]string{"score", "city"},
		[][]string{
			{"85", "北京"}, {"90", "上海"}, {"78", "北京"},
			{"92", "广州"}, {"88", "上海"}, {"NA", "北京"},
		})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

func testPlan() *model.AnalysisPlan {
	return &model.AnalysisPlan{
		SessionID: "session-1",
		Tasks: []model.TaskSpec{
			{
				ID: "3.1", Phase: model.PhaseDescriptive,
				Type: model.TaskDescriptiveStats,
				Name: "描述统计", OutputSheet: "DESC_STATS",
			},
			{
				ID: "3.2", Phase: model.PhaseDescriptive,
				Type: model.TaskFrequencyTables,
				Name: "频数表", OutputSheet: "FREQ_TABLES",
			},
		},
	}
}

func TestRunPlanProducesArtifactAndVerdicts(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	st, err := store.New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()

	engine := &noopEngine{}
	r := NewRunner(p, generator.New(p, generator.DefaultOptions()), engine, qc.NewGate(0), st)

	artifact := filepath.Join(t.TempDir(), "analysis.xlsx")
	outcomes, err := r.RunPlan(context.Background(), testPlan(), artifact)
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes want=2 got=%d", len(outcomes))
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if engine.calls != 1 {
		t.Fatalf("recalc calls want=1 got=%d", engine.calls)
	}

	for _, o := range outcomes {
		if o.GenErr != nil {
			t.Fatalf("task %s: %v", o.Task.ID, o.GenErr)
		}
		if o.Verify == nil || o.Verdict == nil {
			t.Fatalf("task %s missing verify/verdict", o.Task.ID)
		}
		// 未重算的产物没有缓存值，公式覆盖率本身仍然达标
		if o.Verdict.Metrics.FormulaCells == 0 {
			t.Fatalf("task %s verdict saw no formulas", o.Task.ID)
		}
	}

	// 验证结果与判定都已存档
	results, err := st.ListResults("session-1")
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	verdicts, err := st.ListVerdicts("session-1")
	if err != nil {
		t.Fatalf("ListVerdicts: %v", err)
	}
	if len(results) != 2 || len(verdicts) != 2 {
		t.Fatalf("audit rows: results=%d verdicts=%d", len(results), len(verdicts))
	}
}

func TestRunPlanRejectsInvalidPlan(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	r := NewRunner(p, generator.New(p, generator.DefaultOptions()), &noopEngine{}, qc.NewGate(0), nil)

	plan := testPlan()
	plan.Tasks[1].OutputSheet = plan.Tasks[0].OutputSheet // 重名 sheet
	if _, err := r.RunPlan(context.Background(), plan, filepath.Join(t.TempDir(), "a.xlsx")); err == nil {
		t.Fatalf("duplicate output sheet should reject the plan")
	}
}

func TestRunPlanContinuesPastInputError(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	r := NewRunner(p, generator.New(p, generator.DefaultOptions()), &noopEngine{}, qc.NewGate(0), nil)

	plan := testPlan()
	// 分组比较缺少 group_by：生成阶段 InputError，sheet 以错误标记落盘
	plan.Tasks = append(plan.Tasks, model.TaskSpec{
		ID: "4.1", Phase: model.PhaseInferential,
		Type: model.TaskGroupComparison,
		Name: "组间比较", OutputSheet: "GROUP_COMP",
	})

	artifact := filepath.Join(t.TempDir(), "analysis.xlsx")
	outcomes, err := r.RunPlan(context.Background(), plan, artifact)
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}
	bad := outcomes[2]
	if bad.GenErr == nil || bad.Sheet.ErrorMarker == "" {
		t.Fatalf("input error should yield marker sheet: %+v", bad)
	}
	if bad.Verdict == nil || !bad.Verdict.NotVerifiable {
		t.Fatalf("input error verdict: %+v", bad.Verdict)
	}
}

func TestRecordReviewRequiresStore(t *testing.T) {
	t.Parallel()

	p := testProfile(t)
	r := NewRunner(p, generator.New(p, generator.DefaultOptions()), &noopEngine{}, qc.NewGate(0), nil)
	outcome := &model.ReviewOutcome{TaskID: "3.1", Decision: model.DecisionApprove}
	if err := r.RecordReview("session-1", outcome); err == nil {
		t.Fatalf("review without store should fail")
	}
}
