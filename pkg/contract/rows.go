package contract

import (
	"context"
	"fmt"
)

// EmitRows 校验表宽并按源行序回调数据行（首行视为表头，恰好跳过一行）。
// 规则：
// - 表宽取所有行（含表头）的最大单元格数，须与 columns 数量一致；
// - 短行以 Null 补齐；
// - Line 为 1 基行号（表头为 1）。
func EmitRows(ctx context.Context, fileID FileID, rows [][]Cell, columns []Column, yield func(RawRow) error) error {
	if len(columns) == 0 {
		return NewLoadError(string(fileID), fmt.Errorf("%w: no columns configured", ErrInvalidInput))
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width != len(columns) {
		return NewLoadError(string(fileID), fmt.Errorf("%w: source has %d, expected %d", ErrColumnMismatch, width, len(columns)))
	}
	for i := 1; i < len(rows); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		row := RawRow{Line: i + 1}
		for c, col := range columns {
			cell := Null()
			if c < len(rows[i]) {
				cell = rows[i][c]
			}
			switch col.Field {
			case FieldName:
				row.Name = cell
			case FieldDepartment:
				row.Department = cell
			case FieldMobilePhone:
				row.MobilePhone = cell
			}
		}
		if err := yield(row); err != nil {
			return err
		}
	}
	return nil
}
