package recalc

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Local 进程内重算引擎：用 excelize 的公式求值器逐格计算并回写缓存值。
// 求值器覆盖的函数集合有限，主要用于测试与没有 LibreOffice 的环境；
// 生产路径仍然推荐外部引擎。
type Local struct{}

// Recalc 打开工作簿，求值全部公式单元格后保存
func (Local) Recalc(ctx context.Context, path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("打开产物失败: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("读取 sheet %q 失败: %w", sheet, err)
		}
		for ri := range rows {
			for ci := range rows[ri] {
				cell, err := excelize.CoordinatesToCellName(ci+1, ri+1)
				if err != nil {
					return fmt.Errorf("坐标转换失败: %w", err)
				}
				fml, err := f.GetCellFormula(sheet, cell)
				if err != nil || fml == "" {
					continue
				}
				val, err := f.CalcCellValue(sheet, cell)
				if err != nil {
					// 求值器不支持的函数留给外部引擎，不视为重算失败
					continue
				}
				if err := writeCached(f, sheet, cell, fml, val); err != nil {
					return err
				}
			}
		}
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("保存重算结果失败: %w", err)
	}
	return nil
}

// writeCached 把求值结果写为缓存值。
// SetCellValue 会清掉单元格上的公式，写完后需要把公式重新挂回去。
func writeCached(f *excelize.File, sheet, cell, fml, val string) error {
	var err error
	if num, perr := strconv.ParseFloat(val, 64); perr == nil {
		err = f.SetCellValue(sheet, cell, num)
	} else {
		err = f.SetCellValue(sheet, cell, val)
	}
	if err != nil {
		return fmt.Errorf("写回缓存值 %s!%s 失败: %w", sheet, cell, err)
	}
	if err := f.SetCellFormula(sheet, cell, fml); err != nil {
		return fmt.Errorf("恢复公式 %s!%s 失败: %w", sheet, cell, err)
	}
	return nil
}
