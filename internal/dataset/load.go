package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Load 按扩展名加载表格数据并构建画像。
// 支持 .csv 与 .xlsx；xlsx 默认读取第一个 sheet，sheet 参数可覆盖。
func Load(path, sheet string) (*Profile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, sheet)
	default:
		return nil, fmt.Errorf("不支持的数据文件格式: %s", path)
	}
}

// LoadCSV 从 CSV 文件构建画像（第一行为表头）
func LoadCSV(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 CSV 文件失败: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("读取 CSV 失败: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV 文件为空: %s", path)
	}
	return Build(records[0], records[1:])
}

// LoadXLSX 从 Excel 工作簿构建画像（第一行为表头）
func LoadXLSX(path, sheet string) (*Profile, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("工作簿没有任何 sheet: %s", path)
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取 sheet %q 失败: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q 为空", sheet)
	}
	return Build(rows[0], rows[1:])
}
