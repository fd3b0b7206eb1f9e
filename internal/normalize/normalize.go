// Package normalize 将原始单元格转换为规范字符串，并执行最小完整性过滤。
// 全部为纯函数，不做 I/O。
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"contactdir/pkg/contract"
)

// Normalize 将一行原始数据映射为部分规范化记录（Position/OfficePhone 未设置）。
func Normalize(row contract.RawRow) contract.Normalized {
	return contract.Normalized{
		Line:        row.Line,
		Name:        strings.TrimSpace(Text(row.Name)),
		Department:  strings.TrimSpace(Text(row.Department)),
		MobilePhone: MobilePhone(row.MobilePhone),
	}
}

// Text 将任意单元格强制为字符串（不裁剪）。
// 数值以最短十进制形式输出，不使用科学计数法；无法解析的数值原样返回。
func Text(c contract.Cell) string {
	switch c.Kind {
	case contract.KindNull:
		return ""
	case contract.KindNumber:
		d, err := decimal.NewFromString(strings.TrimSpace(c.Value))
		if err != nil {
			return c.Value
		}
		return d.String()
	default:
		return c.Value
	}
}

// MobilePhone 规范化手机号：
// - 数值：取整（银行家舍入）后输出纯数字串，无小数点、无科学计数法；
// - 文本：去首尾空白；
// - 空：""。
// 结果超过 MaxMobileLen 个字符时截取前 MaxMobileLen 个字符，不做合法性校验。
func MobilePhone(c contract.Cell) string {
	var s string
	switch c.Kind {
	case contract.KindNumber:
		v := strings.TrimSpace(c.Value)
		if d, err := decimal.NewFromString(v); err == nil {
			s = d.RoundBank(0).StringFixed(0)
		} else {
			s = v
		}
	case contract.KindText:
		s = strings.TrimSpace(c.Value)
	}
	return Truncate(s, contract.MaxMobileLen)
}

// Truncate 按字符（rune）截断。
func Truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
