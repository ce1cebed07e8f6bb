// Package stats 实现地面真值统计算法。
// 所有统计量直接在清洗后的数据上从头计算，与任何公式文本无关；
// 样本量不足时返回 NaN（表示“无定义”），调用方应将其视为跳过而非失败。
package stats

import (
	"math"
	"sort"
)

// Mean 算术平均；空样本返回 NaN
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// SampleVariance 样本方差 (ddof=1)；n<2 返回 NaN
func SampleVariance(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return math.NaN()
	}
	m := Mean(x)
	ss := 0.0
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return ss / float64(n-1)
}

// SampleSD 样本标准差 (ddof=1)；n<2 返回 NaN
func SampleSD(x []float64) float64 {
	return math.Sqrt(SampleVariance(x))
}

// StandardError 均值标准误 sd/sqrt(n)
func StandardError(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return SampleSD(x) / math.Sqrt(float64(len(x)))
}

// Median 中位数；空样本返回 NaN
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Min 最小值；空样本返回 NaN
func Min(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := x[0]
	for _, v := range x[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max 最大值；空样本返回 NaN
func Max(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Skewness 偏度，采用与 Excel SKEW 相同的偏差校正：
// g = n/((n-1)(n-2)) * Σ((x-x̄)/s)³。n<3 或 s=0 返回 NaN。
func Skewness(x []float64) float64 {
	n := float64(len(x))
	if n < 3 {
		return math.NaN()
	}
	m := Mean(x)
	s := SampleSD(x)
	if s == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range x {
		z := (v - m) / s
		sum += z * z * z
	}
	return n / ((n - 1) * (n - 2)) * sum
}

// Kurtosis 超额峰度，采用与 Excel KURT 相同的偏差校正：
// k = n(n+1)/((n-1)(n-2)(n-3)) * Σ((x-x̄)/s)⁴ − 3(n-1)²/((n-2)(n-3))。
// n<4 或 s=0 返回 NaN。
func Kurtosis(x []float64) float64 {
	n := float64(len(x))
	if n < 4 {
		return math.NaN()
	}
	m := Mean(x)
	s := SampleSD(x)
	if s == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range x {
		z := (v - m) / s
		sum += z * z * z * z
	}
	return n*(n+1)/((n-1)*(n-2)*(n-3))*sum - 3*(n-1)*(n-1)/((n-2)*(n-3))
}

// Pearson 皮尔逊相关系数（输入必须已行对齐，成对完整）；n<3 返回 NaN
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 3 {
		return math.NaN()
	}
	mx, my := Mean(x), Mean(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	return sxy / math.Sqrt(sxx*syy)
}

// FisherZ 相关系数的 Fisher z 变换
func FisherZ(r float64) float64 {
	if math.IsNaN(r) || r <= -1 || r >= 1 {
		return math.NaN()
	}
	return 0.5 * math.Log((1+r)/(1-r))
}
