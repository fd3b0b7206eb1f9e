package contract

import "context"

// Assembler: 将最终记录装配为单个目录文档（字节形式）。
// 约束：
//  1. 按 Line 严格升序，不重排；
//  2. 每条记录满足 ContactRecord 不变量；
//  3. 相同输入产出逐字节相同的文档；
//  4. 违规返回 ErrInvariantViolation / ErrSeqInvalid。
type Assembler interface {
	Assemble(ctx context.Context, entries []Entry) ([]byte, error)
}
