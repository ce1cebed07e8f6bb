package stats

import "math"

// TTestResult 独立样本/配对 t 检验结果
type TTestResult struct {
	T  float64 // t 统计量
	DF float64 // 自由度
	P  float64 // 双尾 p 值
}

func undefinedT() TTestResult {
	return TTestResult{T: math.NaN(), DF: math.NaN(), P: math.NaN()}
}

// TTestIndependent 独立样本 t 检验（合并方差）。任一组 n<2 无定义。
func TTestIndependent(a, b []float64) TTestResult {
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 < 2 || n2 < 2 {
		return undefinedT()
	}
	v1, v2 := SampleVariance(a), SampleVariance(b)
	df := n1 + n2 - 2
	sp2 := ((n1-1)*v1 + (n2-1)*v2) / df
	if sp2 == 0 {
		return undefinedT()
	}
	t := (Mean(a) - Mean(b)) / math.Sqrt(sp2*(1/n1+1/n2))
	return TTestResult{T: t, DF: df, P: StudentT2Tail(t, df)}
}

// TTestPaired 配对 t 检验（按索引配对）。配对数 n<2 无定义。
func TTestPaired(a, b []float64) TTestResult {
	if len(a) != len(b) || len(a) < 2 {
		return undefinedT()
	}
	d := make([]float64, len(a))
	for i := range a {
		d[i] = a[i] - b[i]
	}
	n := float64(len(d))
	sd := SampleSD(d)
	if sd == 0 {
		return undefinedT()
	}
	t := Mean(d) / (sd / math.Sqrt(n))
	df := n - 1
	return TTestResult{T: t, DF: df, P: StudentT2Tail(t, df)}
}

// FTestP 两样本方差齐性的双侧 F 检验 p 值，等价于 Excel F.TEST。
// 任一组 n<2 或方差为 0 无定义。
func FTestP(a, b []float64) float64 {
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 < 2 || n2 < 2 {
		return math.NaN()
	}
	v1, v2 := SampleVariance(a), SampleVariance(b)
	if v1 == 0 || v2 == 0 {
		return math.NaN()
	}
	f := v1 / v2
	p := FCDF(f, n1-1, n2-1)
	tail := math.Min(p, 1-p)
	return 2 * tail
}

// CohensD 合并标准差的 Cohen's d 效应量。任一组 n<2 无定义；合并 SD 为 0 返回 0。
func CohensD(a, b []float64) float64 {
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 < 2 || n2 < 2 {
		return math.NaN()
	}
	v1, v2 := SampleVariance(a), SampleVariance(b)
	pooled := math.Sqrt(((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2))
	if pooled == 0 {
		return 0
	}
	return (Mean(a) - Mean(b)) / pooled
}

// CronbachAlpha Cronbach's α 信度系数。
// items 为按条目组织的列，必须行对齐；仅使用全部条目均非缺失（NaN）的完整行。
// 条目数 <2 或完整行 <2 无定义。采用恒等式
// α = k/(k-1) · (1 − Σ条目方差 / 总分方差)，总分方差为逐行求和列的真实方差。
func CronbachAlpha(items [][]float64) float64 {
	k := len(items)
	if k < 2 {
		return math.NaN()
	}
	rows := len(items[0])
	for _, it := range items {
		if len(it) != rows {
			return math.NaN()
		}
	}

	// 完整行筛选
	complete := make([][]float64, k)
	totals := []float64{}
	for r := 0; r < rows; r++ {
		ok := true
		for _, it := range items {
			if math.IsNaN(it[r]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		sum := 0.0
		for i, it := range items {
			complete[i] = append(complete[i], it[r])
			sum += it[r]
		}
		totals = append(totals, sum)
	}
	if len(totals) < 2 {
		return math.NaN()
	}

	sumItemVar := 0.0
	for _, it := range complete {
		sumItemVar += SampleVariance(it)
	}
	totalVar := SampleVariance(totals)
	if totalVar == 0 {
		return 0
	}
	kf := float64(k)
	return kf / (kf - 1) * (1 - sumItemVar/totalVar)
}

// ItemTotalCorrelation 条目-总分相关：条目 i 与“总分减去该条目”的皮尔逊相关。
// 仅使用完整行；完整行 <3 无定义。
func ItemTotalCorrelation(items [][]float64, idx int) float64 {
	k := len(items)
	if k < 2 || idx < 0 || idx >= k {
		return math.NaN()
	}
	rows := len(items[0])
	var x, y []float64
	for r := 0; r < rows; r++ {
		ok := true
		sum := 0.0
		for _, it := range items {
			if r >= len(it) || math.IsNaN(it[r]) {
				ok = false
				break
			}
			sum += it[r]
		}
		if !ok {
			continue
		}
		x = append(x, items[idx][r])
		y = append(y, sum-items[idx][r])
	}
	return Pearson(x, y)
}

// ChiSquareResult 列联表卡方检验结果
type ChiSquareResult struct {
	Chi2     float64
	DF       float64
	P        float64
	CramersV float64
	N        float64
	Expected [][]float64
}

// ChiSquareTable 对观测计数表做独立性卡方检验并计算 Cramer's V。
// 期望计数由边际合计推出；任一维水平数 <2 无定义。
func ChiSquareTable(observed [][]float64) ChiSquareResult {
	undef := ChiSquareResult{Chi2: math.NaN(), DF: math.NaN(), P: math.NaN(), CramersV: math.NaN(), N: math.NaN()}
	r := len(observed)
	if r < 2 {
		return undef
	}
	c := len(observed[0])
	if c < 2 {
		return undef
	}

	rowTot := make([]float64, r)
	colTot := make([]float64, c)
	grand := 0.0
	for i := 0; i < r; i++ {
		if len(observed[i]) != c {
			return undef
		}
		for j := 0; j < c; j++ {
			rowTot[i] += observed[i][j]
			colTot[j] += observed[i][j]
			grand += observed[i][j]
		}
	}
	if grand == 0 {
		return undef
	}

	chi2 := 0.0
	expected := make([][]float64, r)
	for i := 0; i < r; i++ {
		expected[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			e := rowTot[i] * colTot[j] / grand
			expected[i][j] = e
			if e > 0 {
				d := observed[i][j] - e
				chi2 += d * d / e
			}
		}
	}

	df := float64((r - 1) * (c - 1))
	minDim := float64(r - 1)
	if float64(c-1) < minDim {
		minDim = float64(c - 1)
	}
	return ChiSquareResult{
		Chi2:     chi2,
		DF:       df,
		P:        ChiSquareRightTail(chi2, df),
		CramersV: math.Sqrt(chi2 / (grand * minDim)),
		N:        grand,
		Expected: expected,
	}
}

// NormalityZ 基于偏度/峰度标准误近似的正态性 z 分数：
// z_skew = skew/√(6/n)，z_kurt = kurt/√(24/n)。n<3（或峰度 n<4）无定义。
func NormalityZ(x []float64) (zSkew, zKurt float64) {
	n := float64(len(x))
	zSkew, zKurt = math.NaN(), math.NaN()
	if n >= 3 {
		zSkew = Skewness(x) / math.Sqrt(6/n)
	}
	if n >= 4 {
		zKurt = Kurtosis(x) / math.Sqrt(24/n)
	}
	return zSkew, zKurt
}
