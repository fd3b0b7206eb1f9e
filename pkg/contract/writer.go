package contract

import (
	"context"
	"io"
)

// ArtifactID: 持久化工件标识（与 FileID 同表示）。
type ArtifactID = FileID

// Writer: 将装配结果持久化到目标介质。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 按字节透传，不读取/修改业务内容；
//  3. 原子可见：要么完整写入，要么返回 WriteError 且不留残缺文件；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
