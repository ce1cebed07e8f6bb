package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ColumnType 列语义类型
type ColumnType string

const (
	ColumnNumeric     ColumnType = "numeric"
	ColumnCategorical ColumnType = "categorical"
)

// CleanRule 清洗规则
type CleanRule string

const (
	RuleNumericCoerce CleanRule = "numeric_coerce" // 强制转数值，失败置缺失
	RuleTextTrim      CleanRule = "text_trim"      // 去首尾空白，空值记号归一为缺失
)

// Column 单列画像：名称、稳定坐标、语义类型与清洗规则。
// 坐标在画像生命周期内不变。
type Column struct {
	Name    string     `json:"name"`
	Index   int        `json:"index"`  // 1 起始
	Letter  string     `json:"letter"` // Excel 列号
	Type    ColumnType `json:"type"`
	Rule    CleanRule  `json:"rule"`
	Boolean bool       `json:"boolean"` // 分类列取值全部为布尔记号
}

// Profile 数据集画像：行数、有序列、清洗后的列主序视图。
// 构建一次后只读；所有生成公式与地面真值均以清洗视图为准。
type Profile struct {
	Rows    int
	Columns []Column

	byName map[string]int
	raw    [][]string  // 原始字符串，按列；缺失为 ""
	nums   [][]float64 // 数值列清洗值，缺失为 NaN；分类列为 nil
	texts  [][]string  // 分类列清洗值，缺失为 ""；数值列为 nil
}

// 数值判定阈值：非空样本 ≥5 且转换成功率 ≥80% 视为数值列
const (
	minCoerceSample = 5
	coerceThreshold = 0.8
)

// 空值记号（大小写不敏感），归一为缺失
var nullTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "null": true,
	"none": true, "nan": true, "-": true,
}

// Build 由表头与行数据构建画像。零列数据集直接拒绝。
func Build(headers []string, rows [][]string) (*Profile, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("数据集没有任何列")
	}

	p := &Profile{
		Rows:   len(rows),
		byName: make(map[string]int, len(headers)),
		raw:    make([][]string, len(headers)),
		nums:   make([][]float64, len(headers)),
		texts:  make([][]string, len(headers)),
	}

	for i, name := range headers {
		letter, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("分配列坐标失败: %w", err)
		}

		col := make([]string, len(rows))
		for r, row := range rows {
			if i < len(row) {
				col[r] = row[i]
			}
		}
		p.raw[i] = col

		c := Column{Name: strings.TrimSpace(name), Index: i + 1, Letter: letter}
		classify(&c, col, p, i)
		p.Columns = append(p.Columns, c)
		p.byName[c.Name] = i
	}

	return p, nil
}

// classify 判定列类型并生成清洗视图
func classify(c *Column, raw []string, p *Profile, idx int) {
	nonNull := 0
	parsed := 0
	boolish := 0
	for _, v := range raw {
		t := strings.TrimSpace(v)
		if nullTokens[strings.ToLower(t)] {
			continue
		}
		nonNull++
		if _, err := strconv.ParseFloat(t, 64); err == nil {
			parsed++
		}
		switch strings.ToUpper(t) {
		case "TRUE", "FALSE":
			boolish++
		}
	}

	// 全部非空值都可解析时直接判数值列；
	// 80% 容错判定要求最小样本量，小样本里个别脏值占比过高，不可靠
	allNumeric := nonNull > 0 && parsed == nonNull
	numeric := allNumeric ||
		(nonNull >= minCoerceSample && float64(parsed) >= coerceThreshold*float64(nonNull))
	if numeric {
		c.Type = ColumnNumeric
		c.Rule = RuleNumericCoerce
		vals := make([]float64, len(raw))
		for r, v := range raw {
			t := strings.TrimSpace(v)
			if nullTokens[strings.ToLower(t)] {
				vals[r] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				vals[r] = math.NaN()
				continue
			}
			vals[r] = f
		}
		p.nums[idx] = vals
		return
	}

	c.Type = ColumnCategorical
	c.Rule = RuleTextTrim
	c.Boolean = nonNull > 0 && boolish == nonNull
	vals := make([]string, len(raw))
	for r, v := range raw {
		t := strings.TrimSpace(v)
		if nullTokens[strings.ToLower(t)] {
			vals[r] = ""
			continue
		}
		if c.Boolean {
			t = strings.ToUpper(t)
		}
		vals[r] = t
	}
	p.texts[idx] = vals
}

// Column 按名称查找列
func (p *Profile) Column(name string) (*Column, bool) {
	i, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return &p.Columns[i], true
}

// ColumnNames 全部列名（按坐标顺序）
func (p *Profile) ColumnNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// NumericColumns 数值列名
func (p *Profile) NumericColumns() []string {
	var names []string
	for _, c := range p.Columns {
		if c.Type == ColumnNumeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// CategoricalColumns 分类列名
func (p *Profile) CategoricalColumns() []string {
	var names []string
	for _, c := range p.Columns {
		if c.Type == ColumnCategorical {
			names = append(names, c.Name)
		}
	}
	return names
}

// RawCell 原始单元格值（row 从 0 起）；缺失为 ""
func (p *Profile) RawCell(name string, row int) (string, bool) {
	i, ok := p.byName[name]
	if !ok || row < 0 || row >= p.Rows {
		return "", false
	}
	return p.raw[i][row], true
}

// NumericSeries 数值列清洗值（含 NaN 占位，保持行对齐）
func (p *Profile) NumericSeries(name string) ([]float64, bool) {
	i, ok := p.byName[name]
	if !ok || p.nums[i] == nil {
		return nil, false
	}
	return p.nums[i], true
}

// NumericValues 数值列去缺失后的值
func (p *Profile) NumericValues(name string) []float64 {
	series, ok := p.NumericSeries(name)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// TextSeries 分类列清洗值（含 "" 缺失占位，保持行对齐）
func (p *Profile) TextSeries(name string) ([]string, bool) {
	i, ok := p.byName[name]
	if !ok || p.texts[i] == nil {
		return nil, false
	}
	return p.texts[i], true
}

// CleanedCell 清洗后的单元格值：数值列返回 float64，分类列返回 string，缺失返回 nil
func (p *Profile) CleanedCell(name string, row int) any {
	i, ok := p.byName[name]
	if !ok || row < 0 || row >= p.Rows {
		return nil
	}
	if p.nums[i] != nil {
		v := p.nums[i][row]
		if math.IsNaN(v) {
			return nil
		}
		return v
	}
	v := p.texts[i][row]
	if v == "" {
		return nil
	}
	if p.Columns[i].Boolean {
		return v == "TRUE"
	}
	return v
}

// Levels 分类列（或低基数数值列）观测到的不同取值，按首次出现顺序
func (p *Profile) Levels(name string) []any {
	i, ok := p.byName[name]
	if !ok {
		return nil
	}
	var out []any
	seen := make(map[any]bool)
	for r := 0; r < p.Rows; r++ {
		v := p.CleanedCell(p.Columns[i].Name, r)
		if v == nil || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// MissingCount 列缺失值个数（按清洗视图）
func (p *Profile) MissingCount(name string) int {
	i, ok := p.byName[name]
	if !ok {
		return 0
	}
	n := 0
	for r := 0; r < p.Rows; r++ {
		if p.CleanedCell(p.Columns[i].Name, r) == nil {
			n++
		}
	}
	return n
}

// ZScores 数值列的标准化视图（z 分数），缺失保持 NaN
func (p *Profile) ZScores(name string) ([]float64, bool) {
	series, ok := p.NumericSeries(name)
	if !ok {
		return nil, false
	}
	var sum, sumSq float64
	n := 0
	for _, v := range series {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n < 2 {
		return nil, false
	}
	mean := sum / float64(n)
	for _, v := range series {
		if math.IsNaN(v) {
			continue
		}
		sumSq += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(sumSq / float64(n-1))
	if sd == 0 {
		return nil, false
	}
	out := make([]float64, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / sd
	}
	return out, true
}
