// Package generator 把分析任务确定性地编译为公式 sheet。
// 每种任务类型一个生成方法；全部计算单元格只写公式，
// 公式引用清洗数据 sheet（存在时）或原始数据 sheet。
package generator

import (
	"sync"

	"veristat/internal/dataset"
	"veristat/internal/formula"
	"veristat/internal/model"
)

const (
	// RawSheetName 原始数据 sheet（产物中唯一允许字面值的数据区域）
	RawSheetName = "00_RAW_DATA"
	// CleanedSheetName 清洗公式 sheet：在产物内部用公式重推画像的清洗结果
	CleanedSheetName = "00_CLEANED"
)

// Options 生成器配置
type Options struct {
	HelperBaseColumn   int  // 隐藏辅助列基准列号
	MaxFrequencyLevels int  // 频数表每列最多枚举的取值数
	MaxCrosstabLevels  int  // 列联表每维最多枚举的水平数
	DefaultMaxColumns  int  // 未指定 max_columns 时的列数上限
	SkipCleanedSheet   bool // 不生成清洗 sheet，公式直接引用原始 sheet
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		HelperBaseColumn:   40,
		MaxFrequencyLevels: 15,
		MaxCrosstabLevels:  10,
		DefaultMaxColumns:  30,
	}
}

// Generator 公式生成器。
// 针对同一 sheet 的并发生成调用会被逐 sheet 互斥串行化，
// 避免辅助列坐标冲突；不同 sheet 之间可并行。
type Generator struct {
	profile *dataset.Profile
	opts    Options

	mu       sync.Mutex
	sheetMus map[string]*sync.Mutex
}

// New 创建生成器
func New(profile *dataset.Profile, opts Options) *Generator {
	if opts.HelperBaseColumn <= 0 {
		opts.HelperBaseColumn = DefaultOptions().HelperBaseColumn
	}
	if opts.MaxFrequencyLevels <= 0 {
		opts.MaxFrequencyLevels = DefaultOptions().MaxFrequencyLevels
	}
	if opts.MaxCrosstabLevels <= 0 {
		opts.MaxCrosstabLevels = DefaultOptions().MaxCrosstabLevels
	}
	if opts.DefaultMaxColumns <= 0 {
		opts.DefaultMaxColumns = DefaultOptions().DefaultMaxColumns
	}
	return &Generator{
		profile:  profile,
		opts:     opts,
		sheetMus: make(map[string]*sync.Mutex),
	}
}

// Profile 关联的数据集画像
func (g *Generator) Profile() *dataset.Profile { return g.profile }

// DataSheetName 分析公式引用的数据 sheet 名
func (g *Generator) DataSheetName() string {
	if g.opts.SkipCleanedSheet {
		return RawSheetName
	}
	return CleanedSheetName
}

func (g *Generator) lockSheet(name string) func() {
	g.mu.Lock()
	mu, ok := g.sheetMus[name]
	if !ok {
		mu = &sync.Mutex{}
		g.sheetMus[name] = mu
	}
	g.mu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// Generate 编译一个任务为公式 sheet。
// 任务不合法时返回 InputError，同时返回仅含错误标记的 sheet（零公式），
// 供上游持久化占位并将任务标记为不可验证。
func (g *Generator) Generate(task *model.TaskSpec) (*Sheet, error) {
	if err := task.CheckShape(); err != nil {
		return g.errorSheet(task, err), err
	}

	unlock := g.lockSheet(task.OutputSheet)
	defer unlock()

	s := g.newSession(task)
	var err error
	switch task.Type {
	case model.TaskDataAudit:
		err = s.buildDataAudit()
	case model.TaskDataDictionary:
		err = s.buildDataDictionary()
	case model.TaskMissingData:
		err = s.buildMissingData()
	case model.TaskDescriptiveStats:
		err = s.buildDescriptives()
	case model.TaskFrequencyTables:
		err = s.buildFrequencyTables()
	case model.TaskNormalityCheck:
		err = s.buildNormalityCheck()
	case model.TaskCorrelationMatrix:
		err = s.buildCorrelationMatrix()
	case model.TaskReliabilityAlpha:
		err = s.buildReliabilityAlpha()
	case model.TaskGroupComparison:
		err = s.buildGroupComparison()
	case model.TaskCrossTabulation:
		err = s.buildCrossTabulation()
	case model.TaskEffectSizes:
		err = s.buildEffectSizes()
	case model.TaskSummaryDashboard:
		err = s.buildSummaryDashboard()
	default:
		err = model.NewInputError(task.ID, "未知任务类型: %q", task.Type)
	}
	if err != nil {
		return g.errorSheet(task, err), err
	}
	return s.sheet, nil
}

// errorSheet 生成仅含错误标记的占位 sheet
func (g *Generator) errorSheet(task *model.TaskSpec, err error) *Sheet {
	return &Sheet{
		Name:        task.OutputSheet,
		TaskID:      task.ID,
		Writes:      []Write{{Cell: "A1", Value: "错误: " + err.Error()}},
		ErrorMarker: err.Error(),
	}
}

// session 单个 sheet 的生成会话
type session struct {
	g     *Generator
	task  *model.TaskSpec
	sheet *Sheet
	arena *arena
}

func (g *Generator) newSession(task *model.TaskSpec) *session {
	return &session{
		g:    g,
		task: task,
		sheet: &Sheet{
			Name:   task.OutputSheet,
			TaskID: task.ID,
		},
		// 辅助列数据与清洗 sheet 行对齐：第 2 行起
		arena: newArena(g.opts.HelperBaseColumn, 2, g.profile.Rows+1),
	}
}

func (s *session) label(col, row int, v any) {
	s.sheet.Writes = append(s.sheet.Writes, Write{Cell: formula.CellName(col, row), Value: v})
}

func (s *session) formula(col, row int, e formula.Expr) string {
	cell := formula.CellName(col, row)
	s.sheet.Writes = append(s.sheet.Writes, Write{Cell: cell, Formula: formula.Build(e)})
	return cell
}

func (s *session) formulaAt(cell string, e formula.Expr) {
	s.sheet.Writes = append(s.sheet.Writes, Write{Cell: cell, Formula: formula.Build(e)})
}

func (s *session) probe(name string, kind ProbeKind, cell string, mutate func(*Probe)) {
	p := Probe{Name: name, Kind: kind, Cell: cell}
	if mutate != nil {
		mutate(&p)
	}
	s.sheet.Probes = append(s.sheet.Probes, p)
}

// dataRange 某列在数据 sheet 上的数据区段引用（第 2 行到 rows+1 行）
func (s *session) dataRange(col *dataset.Column) formula.Expr {
	sheet := s.g.DataSheetName()
	from := col.Letter + "2"
	to := formula.CellName(col.Index, s.g.profile.Rows+1)
	return formula.Range(sheet, from, to)
}

// dataCell 某列某数据行（0 起始）在数据 sheet 上的单元格引用
func (s *session) dataCell(col *dataset.Column, dataRow int) formula.Expr {
	return formula.Cell(s.g.DataSheetName(), formula.CellName(col.Index, dataRow+2))
}

// rowCountExpr 公式推导的数据行数：COUNTA(原始首列)-1
func (s *session) rowCountExpr() formula.Expr {
	first := s.g.profile.Columns[0].Letter
	return formula.Bin("-",
		formula.Fn("COUNTA", formula.Range(RawSheetName, first, first)),
		formula.Int(1))
}

// recordHelper 记录辅助列并保持隐藏
func (s *session) recordHelper(h HelperCol, purpose string) {
	s.sheet.Helpers = append(s.sheet.Helpers, HelperRange{
		Column:   h.Column,
		Letter:   h.Letter,
		FirstRow: h.FirstRow,
		LastRow:  h.LastRow,
		Purpose:  purpose,
	})
}

// mustColumn 解析任务引用的列；不存在即 InputError
func (s *session) mustColumn(name string) (*dataset.Column, error) {
	col, ok := s.g.profile.Column(name)
	if !ok {
		return nil, model.NewInputError(s.task.ID, "数据集中不存在列 %q", name)
	}
	return col, nil
}

// selectColumns 按任务的列选择器挑选目标列。
// want 非空时按语义类型过滤；显式列名必须存在。
func (s *session) selectColumns(want dataset.ColumnType) ([]string, error) {
	p := s.g.profile
	var out []string
	if len(s.task.Columns.ColumnNames) > 0 {
		for _, name := range s.task.Columns.ColumnNames {
			col, err := s.mustColumn(name)
			if err != nil {
				return nil, err
			}
			if want != "" && col.Type != want {
				continue
			}
			out = append(out, name)
		}
	} else {
		switch want {
		case dataset.ColumnNumeric:
			out = p.NumericColumns()
		case dataset.ColumnCategorical:
			out = p.CategoricalColumns()
		default:
			out = p.ColumnNames()
		}
	}

	limit := s.task.Columns.MaxColumns
	if limit <= 0 {
		limit = s.g.opts.DefaultMaxColumns
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
