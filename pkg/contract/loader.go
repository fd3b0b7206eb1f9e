package contract

import (
	"context"
	"io"
)

// TableLoader: 将单个表格字节流解析为有序 RawRow 序列。
// 约束：
// 1) 恰好跳过首行（表头），无论其内容；
// 2) 列身份按位置确定，不读取表头文本；
// 3) 列数与 columns 不一致时返回 LoadError；
// 4) 按源行序回调 yield，yield 返回错误即中止并原样上抛；
// 5) 无内部并发。
type TableLoader interface {
	Load(ctx context.Context, fileID FileID, r io.Reader, columns []Column, yield func(RawRow) error) error
}
