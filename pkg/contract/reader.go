package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象（文件/STDIN）。
// 约束：
// 1) 仅打开单个源，以只读方式提供字节流；
// 2) FileID 稳定且去平台差异化；
// 3) 不做解码/业务解析；
// 4) 源无法打开时返回 LoadError；
// 5) yield 返回后由 Reader 负责关闭底层句柄。
type Reader interface {
	Open(ctx context.Context, path string, yield func(fileID FileID, r io.Reader) error) error
}
