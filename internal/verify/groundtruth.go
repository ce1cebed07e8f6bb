// Package verify 用第一性原理复算每个探针的地面真值，
// 并与重算后产物中的实际值在分层容差下比对。
// 地面真值只依赖数据集画像，与产物中的公式完全独立。
package verify

import (
	"fmt"
	"math"

	"veristat/internal/dataset"
	"veristat/internal/generator"
	"veristat/internal/stats"
)

// GroundTruth 计算一个探针的期望值。
// 统计量无定义时返回 NaN（对应产物中守卫公式的空串）；
// 探针元数据不完整（缺列名、缺水平）属于生成器缺陷，返回错误。
func GroundTruth(p *dataset.Profile, probe *generator.Probe) (float64, error) {
	switch probe.Kind {
	case generator.ProbeRowCount:
		return float64(p.Rows), nil
	case generator.ProbeColumnCount:
		return float64(len(p.Columns)), nil
	case generator.ProbeMissingTotal:
		total := 0
		for _, name := range p.ColumnNames() {
			total += p.MissingCount(name)
		}
		return float64(total), nil
	case generator.ProbeCompleteness:
		cells := p.Rows * len(p.Columns)
		if cells == 0 {
			return math.NaN(), nil
		}
		total := 0
		for _, name := range p.ColumnNames() {
			total += p.MissingCount(name)
		}
		return 1 - float64(total)/float64(cells), nil
	case generator.ProbeValidN:
		return validN(p, probe.Columns)
	case generator.ProbeMissingN:
		name, err := oneColumn(probe)
		if err != nil {
			return 0, err
		}
		return float64(p.MissingCount(name)), nil
	case generator.ProbePctMissing:
		name, err := oneColumn(probe)
		if err != nil {
			return 0, err
		}
		if p.Rows == 0 {
			return math.NaN(), nil
		}
		return float64(p.MissingCount(name)) / float64(p.Rows), nil
	case generator.ProbePctComplete:
		if p.Rows == 0 {
			return math.NaN(), nil
		}
		n, err := validN(p, nil)
		if err != nil {
			return 0, err
		}
		return n / float64(p.Rows), nil
	}

	if kind, ok := univariate[probe.Kind]; ok {
		name, err := oneColumn(probe)
		if err != nil {
			return 0, err
		}
		return kind(p.NumericValues(name)), nil
	}

	switch probe.Kind {
	case generator.ProbeFrequency, generator.ProbePercent, generator.ProbeCumulativePct:
		return frequencyTruth(p, probe)
	case generator.ProbeCorrelation, generator.ProbeRSquared, generator.ProbeFisherZ:
		return correlationTruth(p, probe)
	case generator.ProbeAlpha, generator.ProbeItemTotalR,
		generator.ProbeItemMean, generator.ProbeItemSD, generator.ProbeItemVariance:
		return reliabilityTruth(p, probe)
	case generator.ProbeGroupN, generator.ProbeGroupMean, generator.ProbeGroupSD,
		generator.ProbeMeanDiff, generator.ProbeTStat, generator.ProbeDF,
		generator.ProbePValue, generator.ProbeCohensD, generator.ProbeHomogeneityP:
		return groupTruth(p, probe)
	case generator.ProbeObserved, generator.ProbeGrandTotal,
		generator.ProbeChiSquare, generator.ProbeChiDF, generator.ProbeChiP, generator.ProbeCramersV:
		return crosstabTruth(p, probe)
	}
	return 0, fmt.Errorf("未知探针种类: %q", probe.Kind)
}

// univariate 单列数值统计量
var univariate = map[generator.ProbeKind]func([]float64) float64{
	generator.ProbeCount:  func(v []float64) float64 { return float64(len(v)) },
	generator.ProbeMean:   guard1(stats.Mean),
	generator.ProbeSD:     stats.SampleSD,
	generator.ProbeSE:     stats.StandardError,
	generator.ProbeMedian: guard1(stats.Median),
	generator.ProbeMin:    guard1(stats.Min),
	generator.ProbeMax:    guard1(stats.Max),
	generator.ProbeRange: guard1(func(v []float64) float64 {
		return stats.Max(v) - stats.Min(v)
	}),
	generator.ProbeSkewness: stats.Skewness,
	generator.ProbeKurtosis: stats.Kurtosis,
	generator.ProbeSESkew: func(v []float64) float64 {
		if len(v) < 3 {
			return math.NaN()
		}
		return math.Sqrt(6 / float64(len(v)))
	},
	generator.ProbeSEKurt: func(v []float64) float64 {
		if len(v) < 4 {
			return math.NaN()
		}
		return math.Sqrt(24 / float64(len(v)))
	},
	generator.ProbeZSkew: func(v []float64) float64 {
		z, _ := stats.NormalityZ(v)
		return z
	},
	generator.ProbeZKurt: func(v []float64) float64 {
		_, z := stats.NormalityZ(v)
		return z
	},
}

func guard1(f func([]float64) float64) func([]float64) float64 {
	return func(v []float64) float64 {
		if len(v) == 0 {
			return math.NaN()
		}
		return f(v)
	}
}

func oneColumn(probe *generator.Probe) (string, error) {
	if len(probe.Columns) == 0 {
		return "", fmt.Errorf("探针 %q 缺少列名", probe.Name)
	}
	return probe.Columns[0], nil
}

// validN 有效观测数：单列时为该列非缺失数，
// 多列（或空列表=全部列）时为各列均非缺失的完整行数。
func validN(p *dataset.Profile, cols []string) (float64, error) {
	if len(cols) == 1 {
		return float64(p.Rows - p.MissingCount(cols[0])), nil
	}
	if len(cols) == 0 {
		cols = p.ColumnNames()
	}
	n := 0
	for r := 0; r < p.Rows; r++ {
		ok := true
		for _, name := range cols {
			if p.CleanedCell(name, r) == nil {
				ok = false
				break
			}
		}
		if ok {
			n++
		}
	}
	return float64(n), nil
}

func frequencyTruth(p *dataset.Profile, probe *generator.Probe) (float64, error) {
	name, err := oneColumn(probe)
	if err != nil {
		return 0, err
	}

	// 累计百分比探针携带枚举顺序中到该取值为止的水平前缀，
	// 计数口径与公式的 SUM(频数区段) 完全一致
	match := func(v any) bool { return v == probe.Value }
	if probe.Kind == generator.ProbeCumulativePct {
		prefix, ok := probe.Value.([]any)
		if !ok {
			return 0, fmt.Errorf("探针 %q 缺少水平前缀", probe.Name)
		}
		member := make(map[any]bool, len(prefix))
		for _, lv := range prefix {
			member[lv] = true
		}
		match = func(v any) bool { return member[v] }
	}

	count := 0
	valid := 0
	for r := 0; r < p.Rows; r++ {
		v := p.CleanedCell(name, r)
		if v == nil {
			continue
		}
		valid++
		if match(v) {
			count++
		}
	}
	if probe.Kind == generator.ProbeFrequency {
		return float64(count), nil
	}
	if valid == 0 {
		return math.NaN(), nil
	}
	return float64(count) / float64(valid), nil
}

// pairwiseComplete 两列成对删除后的值
func pairwiseComplete(p *dataset.Profile, a, b string) (x, y []float64) {
	sa, oka := p.NumericSeries(a)
	sb, okb := p.NumericSeries(b)
	if !oka || !okb {
		return nil, nil
	}
	for r := 0; r < len(sa) && r < len(sb); r++ {
		if math.IsNaN(sa[r]) || math.IsNaN(sb[r]) {
			continue
		}
		x = append(x, sa[r])
		y = append(y, sb[r])
	}
	return x, y
}

func correlationTruth(p *dataset.Profile, probe *generator.Probe) (float64, error) {
	if len(probe.Columns) < 2 {
		return 0, fmt.Errorf("探针 %q 需要两个列名", probe.Name)
	}
	x, y := pairwiseComplete(p, probe.Columns[0], probe.Columns[1])
	r := stats.Pearson(x, y)
	switch probe.Kind {
	case generator.ProbeRSquared:
		return r * r, nil
	case generator.ProbeFisherZ:
		return stats.FisherZ(r), nil
	}
	return r, nil
}

// itemMatrix 量表条目的行对齐数值矩阵（含 NaN 占位）
func itemMatrix(p *dataset.Profile, items []string) ([][]float64, error) {
	out := make([][]float64, len(items))
	for i, name := range items {
		series, ok := p.NumericSeries(name)
		if !ok {
			return nil, fmt.Errorf("量表条目 %q 不是数值列", name)
		}
		out[i] = series
	}
	return out, nil
}

// completeItems 条目矩阵的 listwise 完整行视图
func completeItems(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make([][]float64, len(m))
	for r := 0; r < len(m[0]); r++ {
		ok := true
		for _, it := range m {
			if math.IsNaN(it[r]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for i, it := range m {
			out[i] = append(out[i], it[r])
		}
	}
	return out
}

func reliabilityTruth(p *dataset.Profile, probe *generator.Probe) (float64, error) {
	m, err := itemMatrix(p, probe.Columns)
	if err != nil {
		return 0, err
	}
	switch probe.Kind {
	case generator.ProbeAlpha:
		return stats.CronbachAlpha(m), nil
	case generator.ProbeItemTotalR:
		return stats.ItemTotalCorrelation(m, probe.ItemIndex), nil
	}

	complete := completeItems(m)
	if probe.ItemIndex < 0 || probe.ItemIndex >= len(complete) {
		return 0, fmt.Errorf("探针 %q 条目下标越界: %d", probe.Name, probe.ItemIndex)
	}
	item := complete[probe.ItemIndex]
	switch probe.Kind {
	case generator.ProbeItemMean:
		if len(item) == 0 {
			return math.NaN(), nil
		}
		return stats.Mean(item), nil
	case generator.ProbeItemSD:
		return stats.SampleSD(item), nil
	case generator.ProbeItemVariance:
		return stats.SampleVariance(item), nil
	}
	return 0, fmt.Errorf("未知信度探针: %q", probe.Kind)
}

// groupSplit 组比较的两组取值。分组水平与生成器同一规则：按首次出现顺序取前两个。
func groupSplit(p *dataset.Profile, probe *generator.Probe) (g1, g2 []float64, levels [2]any, err error) {
	if len(probe.Columns) < 2 {
		return nil, nil, levels, fmt.Errorf("探针 %q 需要因变量与分组列", probe.Name)
	}
	varName, groupName := probe.Columns[0], probe.Columns[1]
	all := p.Levels(groupName)
	if len(all) < 2 {
		return nil, nil, levels, fmt.Errorf("分组列 %q 水平不足", groupName)
	}
	levels[0], levels[1] = all[0], all[1]

	series, ok := p.NumericSeries(varName)
	if !ok {
		return nil, nil, levels, fmt.Errorf("因变量 %q 不是数值列", varName)
	}
	for r := 0; r < p.Rows; r++ {
		if math.IsNaN(series[r]) {
			continue
		}
		switch p.CleanedCell(groupName, r) {
		case levels[0]:
			g1 = append(g1, series[r])
		case levels[1]:
			g2 = append(g2, series[r])
		}
	}
	return g1, g2, levels, nil
}

func groupTruth(p *dataset.Profile, probe *generator.Probe) (float64, error) {
	g1, g2, levels, err := groupSplit(p, probe)
	if err != nil {
		return 0, err
	}

	switch probe.Kind {
	case generator.ProbeGroupN, generator.ProbeGroupMean, generator.ProbeGroupSD:
		g := g1
		if probe.Group != levels[0] {
			g = g2
		}
		switch probe.Kind {
		case generator.ProbeGroupN:
			return float64(len(g)), nil
		case generator.ProbeGroupMean:
			if len(g) == 0 {
				return math.NaN(), nil
			}
			return stats.Mean(g), nil
		default:
			return stats.SampleSD(g), nil
		}
	case generator.ProbeMeanDiff:
		if len(g1) < 2 || len(g2) < 2 {
			return math.NaN(), nil
		}
		return stats.Mean(g1) - stats.Mean(g2), nil
	case generator.ProbeCohensD:
		return stats.CohensD(g1, g2), nil
	case generator.ProbeHomogeneityP:
		return stats.FTestP(g1, g2), nil
	}

	res := stats.TTestIndependent(g1, g2)
	switch probe.Kind {
	case generator.ProbeTStat:
		return res.T, nil
	case generator.ProbeDF:
		return res.DF, nil
	case generator.ProbePValue:
		return res.P, nil
	}
	return 0, fmt.Errorf("未知组比较探针: %q", probe.Kind)
}

// observedTable 按探针携带的水平列表重建观测计数表
func observedTable(p *dataset.Profile, rowVar, colVar string, rowLevels, colLevels []any) [][]float64 {
	table := make([][]float64, len(rowLevels))
	rowIdx := make(map[any]int, len(rowLevels))
	colIdx := make(map[any]int, len(colLevels))
	for i, lv := range rowLevels {
		table[i] = make([]float64, len(colLevels))
		rowIdx[lv] = i
	}
	for j, lv := range colLevels {
		colIdx[lv] = j
	}
	for r := 0; r < p.Rows; r++ {
		rv := p.CleanedCell(rowVar, r)
		cv := p.CleanedCell(colVar, r)
		if rv == nil || cv == nil {
			continue
		}
		i, okR := rowIdx[rv]
		j, okC := colIdx[cv]
		if okR && okC {
			table[i][j]++
		}
	}
	return table
}

func crosstabTruth(p *dataset.Profile, probe *generator.Probe) (float64, error) {
	if len(probe.Columns) < 2 {
		return 0, fmt.Errorf("探针 %q 需要行变量与列变量", probe.Name)
	}
	rowVar, colVar := probe.Columns[0], probe.Columns[1]

	if probe.Kind == generator.ProbeObserved {
		count := 0
		for r := 0; r < p.Rows; r++ {
			if p.CleanedCell(rowVar, r) == probe.Value && p.CleanedCell(colVar, r) == probe.ValueCol {
				count++
			}
		}
		return float64(count), nil
	}

	rowLevels, okR := probe.Value.([]any)
	colLevels, okC := probe.ValueCol.([]any)
	if !okR || !okC {
		return 0, fmt.Errorf("探针 %q 缺少水平列表", probe.Name)
	}
	table := observedTable(p, rowVar, colVar, rowLevels, colLevels)

	if probe.Kind == generator.ProbeGrandTotal {
		total := 0.0
		for _, row := range table {
			for _, v := range row {
				total += v
			}
		}
		return total, nil
	}

	res := stats.ChiSquareTable(table)
	switch probe.Kind {
	case generator.ProbeChiSquare:
		return res.Chi2, nil
	case generator.ProbeChiDF:
		return res.DF, nil
	case generator.ProbeChiP:
		return res.P, nil
	case generator.ProbeCramersV:
		return res.CramersV, nil
	}
	return 0, fmt.Errorf("未知列联探针: %q", probe.Kind)
}
