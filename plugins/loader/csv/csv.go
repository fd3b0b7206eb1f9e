package csv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"contactdir/pkg/contract"
)

// Options 为 CSV Loader 的可选配置（最小必要）。
type Options struct {
	// Comma: 字段分隔符（单个字符）。默认 ","。
	Comma string `json:"comma"`
	// LazyQuotes: 容忍不规范引号（Excel 导出常见）。
	LazyQuotes bool `json:"lazy_quotes"`
}

// Loader 实现 CSV 表格加载。小数/科学计数形式的数值单元格视为数值，其余非空单元格视为文本。
type Loader struct {
	comma rune
	lazy  bool
}

// New 创建 CSV Loader。
func New(opts *Options) (*Loader, error) {
	l := &Loader{comma: ','}
	if opts == nil {
		return l, nil
	}
	if opts.Comma != "" {
		r, size := utf8.DecodeRuneInString(opts.Comma)
		if size != len(opts.Comma) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
			return nil, fmt.Errorf("csv: invalid comma %q", opts.Comma)
		}
		l.comma = r
	}
	l.lazy = opts.LazyQuotes
	return l, nil
}

var _ contract.TableLoader = (*Loader)(nil)

// Load 读取全部记录后校验列宽，再按行回调。
func (l *Loader) Load(ctx context.Context, fileID contract.FileID, r io.Reader, columns []contract.Column, yield func(contract.RawRow) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	cr := csv.NewReader(skipBOM(r))
	cr.Comma = l.comma
	cr.LazyQuotes = l.lazy
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return contract.NewLoadError(string(fileID), err)
	}
	rows := make([][]contract.Cell, len(records))
	for i, rec := range records {
		cells := make([]contract.Cell, len(rec))
		for j, v := range rec {
			cells[j] = cellOf(v)
		}
		rows[i] = cells
	}
	return contract.EmitRows(ctx, fileID, rows, columns, yield)
}

// cellOf 推断单元格类型。纯数字串保留为文本，以免丢失前导零（如 0712…）；
// 带小数点或指数的可解析数值视为数值。
func cellOf(v string) contract.Cell {
	if v == "" {
		return contract.Null()
	}
	if t := strings.TrimSpace(v); strings.ContainsAny(t, ".eE") {
		if _, err := strconv.ParseFloat(t, 64); err == nil {
			return contract.Number(t)
		}
	}
	return contract.Text(v)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM 去除 Excel 导出 CSV 常见的 UTF-8 BOM。
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
