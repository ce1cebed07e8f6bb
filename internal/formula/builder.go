// Package formula 提供 Excel 方言公式的类型化构造器。
// 公式以表达式树组装并统一渲染，条件值按类型正确转义，
// 避免手工拼接字符串带来的引号与通配符问题。
package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Expr 公式表达式节点
type Expr interface {
	write(b *strings.Builder)
}

type fnExpr struct {
	name string
	args []Expr
}

func (e fnExpr) write(b *strings.Builder) {
	b.WriteString(e.name)
	b.WriteByte('(')
	for i, a := range e.args {
		if i > 0 {
			b.WriteByte(',')
		}
		a.write(b)
	}
	b.WriteByte(')')
}

type binExpr struct {
	op   string
	l, r Expr
}

func (e binExpr) write(b *strings.Builder) {
	e.l.write(b)
	b.WriteString(e.op)
	e.r.write(b)
}

type groupExpr struct{ inner Expr }

func (e groupExpr) write(b *strings.Builder) {
	b.WriteByte('(')
	e.inner.write(b)
	b.WriteByte(')')
}

type numExpr float64

func (e numExpr) write(b *strings.Builder) { b.WriteString(FormatNumber(float64(e))) }

type strExpr string

func (e strExpr) write(b *strings.Builder) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(string(e), `"`, `""`))
	b.WriteByte('"')
}

type boolExpr bool

func (e boolExpr) write(b *strings.Builder) {
	if e {
		b.WriteString("TRUE")
	} else {
		b.WriteString("FALSE")
	}
}

type rawExpr string

func (e rawExpr) write(b *strings.Builder) { b.WriteString(string(e)) }

// Fn 函数调用，如 Fn("AVERAGE", r)
func Fn(name string, args ...Expr) Expr { return fnExpr{name: name, args: args} }

// Num 数值字面量
func Num(v float64) Expr { return numExpr(v) }

// Int 整数字面量
func Int(n int) Expr { return numExpr(float64(n)) }

// Str 字符串字面量（自动转义内部引号）
func Str(s string) Expr { return strExpr(s) }

// Bool 布尔字面量，渲染为 TRUE/FALSE
func Bool(v bool) Expr { return boolExpr(v) }

// Empty 空字符串字面量 ""
func Empty() Expr { return strExpr("") }

// Raw 原样片段（单元格引用等已渲染好的 token）
func Raw(s string) Expr { return rawExpr(s) }

// Bin 二元运算
func Bin(op string, l, r Expr) Expr { return binExpr{op: op, l: l, r: r} }

// Group 括号分组
func Group(inner Expr) Expr { return groupExpr{inner: inner} }

// Cell 单元格引用；sheet 为空时为本 sheet 引用
func Cell(sheet, cell string) Expr {
	if sheet == "" {
		return rawExpr(cell)
	}
	return rawExpr(quoteSheet(sheet) + "!" + cell)
}

// Range 区域引用
func Range(sheet, from, to string) Expr {
	if sheet == "" {
		return rawExpr(from + ":" + to)
	}
	return rawExpr(quoteSheet(sheet) + "!" + from + ":" + to)
}

// Criterion 等值比较用的类型化条件值：
// 字符串加引号并转义、布尔渲染为 TRUE/FALSE、数值不加引号。
func Criterion(v any) Expr {
	switch x := v.(type) {
	case bool:
		return Bool(x)
	case string:
		return Str(x)
	case float64:
		return Num(x)
	case int:
		return Int(x)
	default:
		return Str(fmt.Sprint(v))
	}
}

// MatchCriterion COUNTIF/COUNTIFS/AVERAGEIF 族的条件值。
// 这一族函数会把 * ? ~ 解释为通配符，字符串条件需要额外转义。
func MatchCriterion(v any) Expr {
	s, ok := v.(string)
	if !ok {
		return Criterion(v)
	}
	r := strings.NewReplacer("~", "~~", "*", "~*", "?", "~?")
	return Str(r.Replace(s))
}

// Build 渲染为以 = 开头的公式文本
func Build(e Expr) string {
	var b strings.Builder
	b.WriteByte('=')
	e.write(&b)
	return b.String()
}

// Render 渲染表达式本身（不带 = 前缀）
func Render(e Expr) string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

// FormatNumber 确定性数值渲染：整数不带小数点，其余用最短往返表示
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// quoteSheet sheet 名统一加单引号，内部单引号成对转义
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// CellName 列号+行号转 A1 坐标（列号 1 起始）
func CellName(col, row int) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		// 坐标越界属于编程错误
		panic(fmt.Sprintf("非法单元格坐标 (%d,%d): %v", col, row, err))
	}
	return cell
}

// ColName 列号转列字母（1 -> A）
func ColName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		panic(fmt.Sprintf("非法列号 %d: %v", col, err))
	}
	return name
}
