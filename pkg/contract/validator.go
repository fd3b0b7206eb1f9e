package contract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var officePhoneRe = regexp.MustCompile(`^\d{4}-\d{7}$`)

// ValidateRecord 校验单条最终记录的不变量（纯函数，无 I/O）：
// - name/department 去空白后非空；
// - mobilePhone 不超过 MaxMobileLen 个字符；
// - officePhone 形如 dddd-ddddddd。
func ValidateRecord(r ContactRecord) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvariantViolation)
	}
	if strings.TrimSpace(r.Department) == "" {
		return fmt.Errorf("%w: empty department", ErrInvariantViolation)
	}
	if n := utf8.RuneCountInString(r.MobilePhone); n > MaxMobileLen {
		return fmt.Errorf("%w: mobilePhone length %d > %d", ErrInvariantViolation, n, MaxMobileLen)
	}
	if !officePhoneRe.MatchString(r.OfficePhone) {
		return fmt.Errorf("%w: officePhone %q", ErrInvariantViolation, r.OfficePhone)
	}
	return nil
}

// ValidateEntries 逐条校验并要求 Line 严格递增；返回去掉行号的文档副本。
func ValidateEntries(entries []Entry) (Document, error) {
	doc := make(Document, 0, len(entries))
	prev := 0
	for i, e := range entries {
		if e.Line <= 0 {
			return nil, fmt.Errorf("%w: entry %d has no source line", ErrInvalidInput, i)
		}
		if i > 0 && e.Line <= prev {
			return nil, fmt.Errorf("%w: line %d after %d", ErrSeqInvalid, e.Line, prev)
		}
		if err := ValidateRecord(e.Record); err != nil {
			return nil, fmt.Errorf("line %d: %w", e.Line, err)
		}
		doc = append(doc, e.Record)
		prev = e.Line
	}
	return doc, nil
}
