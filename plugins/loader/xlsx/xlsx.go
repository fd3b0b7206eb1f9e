package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"contactdir/pkg/contract"
)

// Options 为 XLSX Loader 的可选配置。
type Options struct {
	// Sheet: 工作表名；为空时取第一个工作表。
	Sheet string `json:"sheet"`
}

// Loader 实现 XLSX 表格加载。
// 单元格定型：数值单元格（含未标注类型的数值）→ Number（保留原始数值文本），
// 字符串/公式字符串等 → Text，空单元格 → Null。
type Loader struct {
	sheet string
}

// New 创建 XLSX Loader。
func New(opts *Options) *Loader {
	l := &Loader{}
	if opts != nil {
		l.sheet = opts.Sheet
	}
	return l
}

var _ contract.TableLoader = (*Loader)(nil)

// Load 解析工作簿并按行回调。
func (l *Loader) Load(ctx context.Context, fileID contract.FileID, r io.Reader, columns []contract.Column, yield func(contract.RawRow) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return contract.NewLoadError(string(fileID), err)
	}
	defer f.Close()

	sheet := l.sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return contract.NewLoadError(string(fileID), errors.New("workbook has no sheets"))
		}
		sheet = list[0]
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return contract.NewLoadError(string(fileID), fmt.Errorf("sheet %q: %w", sheet, err))
	}
	rows := make([][]contract.Cell, len(raw))
	for ri, vals := range raw {
		cells := make([]contract.Cell, len(vals))
		for ci, v := range vals {
			c, err := cellOf(f, sheet, ci, ri, v)
			if err != nil {
				return contract.NewLoadError(string(fileID), err)
			}
			cells[ci] = c
		}
		rows[ri] = cells
	}
	return contract.EmitRows(ctx, fileID, rows, columns, yield)
}

func cellOf(f *excelize.File, sheet string, col, row int, v string) (contract.Cell, error) {
	if v == "" {
		return contract.Null(), nil
	}
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return contract.Cell{}, err
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return contract.Cell{}, err
	}
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		// 未标注类型的单元格在 OOXML 中默认为数值
		if _, perr := strconv.ParseFloat(v, 64); perr == nil {
			return contract.Number(v), nil
		}
		return contract.Text(v), nil
	default:
		return contract.Text(v), nil
	}
}
