package model

import (
	"errors"
	"testing"
)

func validTask() TaskSpec {
	return TaskSpec{
		ID:          "3.1",
		Phase:       PhaseDescriptive,
		Type:        TaskDescriptiveStats,
		Name:        "核心变量描述统计",
		OutputSheet: "DESC_STATS",
	}
}

func TestCheckShapeValid(t *testing.T) {
	t.Parallel()

	task := validTask()
	if err := task.CheckShape(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}
}

func TestCheckShapeRejectsBadID(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"", "3", "3.1.1", "a.b", "3-1"} {
		task := validTask()
		task.ID = id
		err := task.CheckShape()
		if err == nil {
			t.Fatalf("id %q should be rejected", id)
		}
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Fatalf("want InputError got %T", err)
		}
	}
}

func TestCheckShapeRejectsBadSheetName(t *testing.T) {
	t.Parallel()

	for _, sheet := range []string{"", "lower_case", "HAS SPACE", "中文SHEET", "TOO_LONG_SHEET_NAME_OVER_31_CHARS_X"} {
		task := validTask()
		task.OutputSheet = sheet
		if err := task.CheckShape(); err == nil {
			t.Fatalf("sheet %q should be rejected", sheet)
		}
	}
}

func TestCheckShapeRejectsUnknownType(t *testing.T) {
	t.Parallel()

	task := validTask()
	task.Type = "pivot_table"
	if err := task.CheckShape(); err == nil {
		t.Fatalf("unknown type should be rejected")
	}
}

func TestCheckShapeReliabilityNeedsTwoItems(t *testing.T) {
	t.Parallel()

	task := validTask()
	task.Type = TaskReliabilityAlpha
	task.ScaleItems = []string{"q1"}
	if err := task.CheckShape(); err == nil {
		t.Fatalf("single scale item should be rejected")
	}
	task.ScaleItems = []string{"q1", "q2"}
	if err := task.CheckShape(); err != nil {
		t.Fatalf("two items rejected: %v", err)
	}
}

func TestPlanValidateDuplicates(t *testing.T) {
	t.Parallel()

	a := validTask()
	b := validTask() // 同 ID 同 sheet
	plan := AnalysisPlan{SessionID: "s1", Tasks: []TaskSpec{a, b}}
	v := plan.Validate([]string{"score"})
	if v.Valid {
		t.Fatalf("duplicate id/sheet should invalidate plan")
	}
	if len(v.Errors) != 2 {
		t.Fatalf("want 2 errors got %v", v.Errors)
	}
}

func TestPlanValidateColumnReferences(t *testing.T) {
	t.Parallel()

	task := validTask()
	task.Columns.ColumnNames = []string{"ghost"}
	plan := AnalysisPlan{SessionID: "s1", Tasks: []TaskSpec{task}}
	v := plan.Validate([]string{"score"})
	// 未知目标列只警告（生成时才拒绝），未知分组列是硬错误
	if !v.Valid || len(v.Warnings) != 1 {
		t.Fatalf("unknown column should warn: %+v", v)
	}

	task2 := validTask()
	task2.ID = "3.2"
	task2.OutputSheet = "DESC_STATS2"
	task2.GroupBy = "ghost"
	plan2 := AnalysisPlan{SessionID: "s1", Tasks: []TaskSpec{task2}}
	if v2 := plan2.Validate([]string{"score"}); v2.Valid {
		t.Fatalf("unknown group_by should be an error")
	}
}

func TestReviewDecisionValid(t *testing.T) {
	t.Parallel()

	if !DecisionApprove.Valid() || !DecisionHalt.Valid() {
		t.Fatalf("known decisions should be valid")
	}
	if ReviewDecision("maybe").Valid() {
		t.Fatalf("unknown decision should be invalid")
	}
}
