package verify

import (
	"math"

	"veristat/internal/generator"
)

// Tolerance 分层数值容差
type Tolerance struct {
	Exact bool    // 计数类统计量要求精确一致
	Abs   float64 // 绝对偏差上限
	Rel   float64 // 相对偏差上限
}

// 容差分层：
//   - 计数与自由度为整数，精确比对（浮点读回留 1e-9 余量）
//   - 形状统计量（偏度/峰度族）数值上更敏感，放宽到 1e-3
//   - 相关矩阵单元格按约定舍入 3 位，用绝对容差 1e-3
//   - 其余连续统计量相对 1e-4
var exactKinds = map[generator.ProbeKind]bool{
	generator.ProbeCount: true, generator.ProbeFrequency: true,
	generator.ProbeGroupN: true, generator.ProbeDF: true,
	generator.ProbeObserved: true, generator.ProbeChiDF: true,
	generator.ProbeGrandTotal: true, generator.ProbeRowCount: true,
	generator.ProbeColumnCount: true, generator.ProbeMissingTotal: true,
	generator.ProbeValidN: true, generator.ProbeMissingN: true,
}

var shapeKinds = map[generator.ProbeKind]bool{
	generator.ProbeSkewness: true, generator.ProbeKurtosis: true,
	generator.ProbeSESkew: true, generator.ProbeSEKurt: true,
	generator.ProbeZSkew: true, generator.ProbeZKurt: true,
}

// ToleranceFor 按探针种类选择容差
func ToleranceFor(kind generator.ProbeKind) Tolerance {
	switch {
	case exactKinds[kind]:
		return Tolerance{Exact: true, Abs: 1e-9}
	case shapeKinds[kind]:
		return Tolerance{Abs: 1e-6, Rel: 1e-3}
	case kind == generator.ProbeCorrelation:
		return Tolerance{Abs: 1e-3}
	default:
		return Tolerance{Abs: 1e-6, Rel: 1e-4}
	}
}

// Within 判断实际值是否落在期望值的容差内
func (t Tolerance) Within(expected, actual float64) bool {
	if math.IsNaN(expected) || math.IsNaN(actual) {
		return false
	}
	diff := math.Abs(actual - expected)
	if t.Exact {
		return diff <= t.Abs
	}
	if diff <= t.Abs {
		return true
	}
	if t.Rel > 0 && expected != 0 {
		return diff/math.Abs(expected) <= t.Rel
	}
	return false
}
