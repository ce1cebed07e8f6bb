package generator

import (
	"fmt"

	"veristat/internal/formula"
)

// arena 单个 sheet 生成会话内的隐藏辅助列分配器。
// 从配置的基准列起单调分配，返回不透明坐标句柄；
// 同一会话内坐标重复分配属于编程契约违规，直接 panic 而非返回错误。
type arena struct {
	base      int // 基准列号（1 起始）
	next      int
	firstRow  int
	lastRow   int
	allocated map[int]string
}

// HelperCol 辅助列句柄
type HelperCol struct {
	Column   int
	Letter   string
	FirstRow int
	LastRow  int
}

// Range 辅助列数据区段的本 sheet 引用
func (h HelperCol) Range() formula.Expr {
	return formula.Range("", h.cellAt(h.FirstRow), h.cellAt(h.LastRow))
}

// CellAt 辅助列某一行的坐标
func (h HelperCol) CellAt(row int) string { return h.cellAt(row) }

func (h HelperCol) cellAt(row int) string {
	return fmt.Sprintf("%s%d", h.Letter, row)
}

func newArena(base, firstRow, lastRow int) *arena {
	return &arena{
		base:      base,
		next:      base,
		firstRow:  firstRow,
		lastRow:   lastRow,
		allocated: make(map[int]string),
	}
}

// alloc 分配下一个辅助列
func (a *arena) alloc(purpose string) HelperCol {
	col := a.next
	if prev, exists := a.allocated[col]; exists {
		panic(fmt.Sprintf("辅助列坐标冲突: 列 %d 已分配给 %q", col, prev))
	}
	a.allocated[col] = purpose
	a.next++
	return HelperCol{
		Column:   col,
		Letter:   formula.ColName(col),
		FirstRow: a.firstRow,
		LastRow:  a.lastRow,
	}
}
