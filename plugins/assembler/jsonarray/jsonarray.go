package jsonarray

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"contactdir/pkg/contract"
)

// Options: JSON 数组装配器选项。
type Options struct {
	// Indent: 缩进空格数（0..8）。为 nil 时默认 2；0 表示紧凑输出。
	Indent *int `json:"indent,omitempty"`
}

type assembler struct {
	indent string
}

// New 从原样 JSON Options 创建装配器（严格拒绝未知字段）。
func New(raw json.RawMessage) (contract.Assembler, error) {
	var opts Options
	if len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return nil, err
		}
	}
	n := 2
	if opts.Indent != nil {
		n = *opts.Indent
	}
	if n < 0 || n > 8 {
		return nil, fmt.Errorf("jsonarray: indent %d out of range [0,8]", n)
	}
	return &assembler{indent: strings.Repeat(" ", n)}, nil
}

// Assemble 校验顺序与记录不变量后编码为 JSON 数组。
// 键顺序固定为 name, department, position, officePhone, mobilePhone；
// 非 ASCII 字符原样输出；末尾不带换行。
func (a *assembler) Assemble(ctx context.Context, entries []contract.Entry) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	doc, err := contract.ValidateEntries(entries)
	if err != nil {
		return nil, err
	}
	return Encode(doc, a.indent)
}

// Encode 将文档编码为字节；相同输入产出逐字节相同的结果。
func Encode(doc contract.Document, indent string) ([]byte, error) {
	if doc == nil {
		doc = contract.Document{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

var _ contract.Assembler = (*assembler)(nil)
