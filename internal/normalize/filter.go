package normalize

import (
	"strings"

	"contactdir/pkg/contract"
)

// Accept 当且仅当姓名与科室去空白后均非空时接受记录。
// 手机号为空或格式异常不影响接受。
func Accept(n contract.Normalized) bool {
	return strings.TrimSpace(n.Name) != "" && strings.TrimSpace(n.Department) != ""
}
