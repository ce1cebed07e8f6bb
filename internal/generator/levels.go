package generator

import (
	"fmt"
	"sort"

	"veristat/internal/formula"
)

// sortedLevels 频数/列联枚举用的取值排序：
// 数值升序在前，布尔 FALSE<TRUE，字符串按字典序。
// 排序保证同一数据集多次生成的枚举顺序逐字节一致。
func sortedLevels(levels []any) []any {
	out := make([]any, len(levels))
	copy(out, levels)
	sort.SliceStable(out, func(i, j int) bool {
		return levelLess(out[i], out[j])
	})
	return out
}

func levelLess(a, b any) bool {
	ra, rb := levelRank(a), levelRank(b)
	if ra != rb {
		return ra < rb
	}
	switch x := a.(type) {
	case float64:
		return x < b.(float64)
	case bool:
		return !x && b.(bool)
	case string:
		return x < b.(string)
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func levelRank(v any) int {
	switch v.(type) {
	case float64:
		return 0
	case bool:
		return 1
	case string:
		return 2
	}
	return 3
}

// levelLabel 取值在表格标签列里的显示形式
func levelLabel(v any) any {
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(v)
	}
}

// levelCriterion COUNTIF/COUNTIFS 条件表达式（带通配符转义）
func levelCriterion(v any) formula.Expr {
	return formula.MatchCriterion(v)
}
