// Package pipeline 把生成、重算、验证、质量门与存档串成一次完整执行。
// 任务级失败（输入不合法）不会中断整个计划：错误标记 sheet 照常落盘，
// 对应任务以不可验证判定存档；基础设施失败（引擎、产物缺失）向上抛。
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/xuri/excelize/v2"

	"veristat/internal/dataset"
	"veristat/internal/generator"
	"veristat/internal/model"
	"veristat/internal/qc"
	"veristat/internal/recalc"
	"veristat/internal/store"
	"veristat/internal/verify"
)

// Runner 执行器
type Runner struct {
	Profile *dataset.Profile
	Gen     *generator.Generator
	Engine  recalc.Engine
	Gate    *qc.Gate
	Store   *store.Store // 可为 nil（不存档）

	mu          sync.Mutex
	artifactMus map[string]*sync.Mutex
}

// NewRunner 创建执行器
func NewRunner(profile *dataset.Profile, gen *generator.Generator, engine recalc.Engine, gate *qc.Gate, st *store.Store) *Runner {
	return &Runner{
		Profile:     profile,
		Gen:         gen,
		Engine:      engine,
		Gate:        gate,
		Store:       st,
		artifactMus: make(map[string]*sync.Mutex),
	}
}

// TaskOutcome 单任务的端到端结果
type TaskOutcome struct {
	Task    *model.TaskSpec
	Sheet   *generator.Sheet
	GenErr  error // 生成阶段的 InputError（如有）
	Verify  *verify.Result
	Verdict *qc.Verdict
}

// lockArtifact 对同一产物文件的重算互斥
func (r *Runner) lockArtifact(path string) func() {
	r.mu.Lock()
	mu, ok := r.artifactMus[path]
	if !ok {
		mu = &sync.Mutex{}
		r.artifactMus[path] = mu
	}
	r.mu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// RunPlan 执行整个计划并产出产物文件。
// 计划校验出错直接拒绝执行；校验警告打印后继续。
func (r *Runner) RunPlan(ctx context.Context, plan *model.AnalysisPlan, artifactPath string) ([]*TaskOutcome, error) {
	validation := plan.Validate(r.Profile.ColumnNames())
	for _, w := range validation.Warnings {
		log.Printf("计划警告: %s", w)
	}
	if !validation.Valid {
		return nil, fmt.Errorf("计划校验失败: %v", validation.Errors)
	}

	// 生成阶段：任务间并行，同名 sheet 由生成器内部串行化
	outcomes := make([]*TaskOutcome, len(plan.Tasks))
	var wg sync.WaitGroup
	for i := range plan.Tasks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task := &plan.Tasks[i]
			sheet, err := r.Gen.Generate(task)
			outcomes[i] = &TaskOutcome{Task: task, Sheet: sheet, GenErr: err}
		}(i)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.GenErr != nil {
			log.Printf("任务 %s 生成失败: %v", o.Task.ID, o.GenErr)
		}
	}

	// 装配与落盘
	wb, err := generator.NewWorkbook(r.Gen)
	if err != nil {
		return nil, fmt.Errorf("装配工作簿失败: %w", err)
	}
	for _, o := range outcomes {
		if err := wb.Apply(o.Sheet); err != nil {
			_ = wb.Close()
			return nil, err
		}
	}
	if err := wb.Save(artifactPath); err != nil {
		_ = wb.Close()
		return nil, err
	}
	if err := wb.Close(); err != nil {
		return nil, fmt.Errorf("关闭工作簿失败: %w", err)
	}

	// 重算
	unlock := r.lockArtifact(artifactPath)
	err = r.Engine.Recalc(ctx, artifactPath)
	unlock()
	if err != nil {
		return outcomes, err
	}

	// 验证
	sheets := make([]*generator.Sheet, len(outcomes))
	for i, o := range outcomes {
		sheets[i] = o.Sheet
	}
	harness := verify.NewHarness(r.Profile)
	results, err := harness.VerifyArtifact(artifactPath, sheets)
	if err != nil {
		return outcomes, err
	}
	for i, res := range results {
		outcomes[i].Verify = res
	}

	// 质量门
	f, err := excelize.OpenFile(artifactPath)
	if err != nil {
		return outcomes, &model.ArtifactError{Path: artifactPath, Reason: err.Error()}
	}
	defer f.Close()
	for _, o := range outcomes {
		verdict, err := r.Gate.Inspect(f, o.Sheet)
		if err != nil {
			return outcomes, err
		}
		// 验证失败同样是硬性失败
		if o.Verify != nil && o.Verify.Status == verify.StatusFail {
			verdict.HardFailures = append(verdict.HardFailures,
				fmt.Sprintf("数值验证未通过 (%d 项偏差)", o.Verify.Failed))
			verdict.Passed = false
		}
		o.Verdict = verdict
	}

	// 存档
	if r.Store != nil {
		for _, o := range outcomes {
			if o.Verify != nil {
				if err := r.Store.SaveResult(plan.SessionID, o.Verify); err != nil {
					return outcomes, err
				}
			}
			if o.Verdict != nil {
				if err := r.Store.SaveVerdict(plan.SessionID, o.Verdict); err != nil {
					return outcomes, err
				}
			}
		}
	}

	return outcomes, nil
}

// RecordReview 存档一条评审结论
func (r *Runner) RecordReview(sessionID string, outcome *model.ReviewOutcome) error {
	if r.Store == nil {
		return fmt.Errorf("未配置审计存储，无法记录评审")
	}
	return r.Store.SaveReview(sessionID, outcome)
}
