// Package report 打印运行汇总：列名、行数、接受/拒绝计数、记录样例与输出摘录。
package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"contactdir/internal/diag"
	"contactdir/internal/theme"
	"contactdir/pkg/contract"
)

const (
	// PreviewRecords: 样例记录条数。
	PreviewRecords = 5
	// PreviewRunes: 输出摘录的字符数。
	PreviewRunes = 500
)

// Summary: 一次运行的可观测结果。Written 为实际写出的字节。
type Summary struct {
	Columns    []contract.Column
	SourceRows int // 含表头
	DataRows   int
	Accepted   int
	Rejected   int
	Output     string
	Records    contract.Document
	Written    []byte
}

// Reporter 向 w 输出汇总；styled 时按主题配色渲染标签。
type Reporter struct {
	w      io.Writer
	styled bool
	label  lipgloss.Style
	count  lipgloss.Style
	muted  lipgloss.Style
}

// New 构造 Reporter。
func New(w io.Writer, th theme.Theme, styled bool) *Reporter {
	re := lipgloss.NewRenderer(w)
	return &Reporter{
		w:      w,
		styled: styled,
		label:  re.NewStyle().Bold(true).Foreground(lipgloss.Color(th.Primary)),
		count:  re.NewStyle().Bold(true).Foreground(lipgloss.Color(th.Accent)),
		muted:  re.NewStyle().Foreground(lipgloss.Color(th.TextSecondary)),
	}
}

// NewAuto 在 w 为终端（且非 CI）时启用样式。
func NewAuto(w io.Writer, th theme.Theme) *Reporter {
	return New(w, th, diag.IsTerminal(w))
}

func (r *Reporter) render(st lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return st.Render(s)
}

// Report 输出汇总；仅返回第一个写错误。
func (r *Reporter) Report(s Summary) error {
	ew := &errWriter{w: r.w}
	labels := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		labels = append(labels, c.Label)
	}
	ew.printf("%s %s\n", r.render(r.label, "列名:"), strings.Join(labels, ", "))
	ew.printf("%s %s\n", r.render(r.label, "源行数:"), r.render(r.count, fmt.Sprint(s.SourceRows)))
	ew.printf("%s %s\n", r.render(r.label, "数据行数:"), r.render(r.count, fmt.Sprint(s.DataRows)))
	ew.printf("%s %s\n", r.render(r.label, "已接受:"), r.render(r.count, fmt.Sprint(s.Accepted)))
	ew.printf("%s %s\n", r.render(r.label, "已拒绝:"), r.render(r.count, fmt.Sprint(s.Rejected)))
	if s.Output != "" {
		ew.printf("%s %s\n", r.render(r.label, "输出文件:"), s.Output)
	}

	ew.printf("\n%s\n", r.render(r.label, fmt.Sprintf("前%d条记录示例:", PreviewRecords)))
	for i, rec := range s.Records {
		if i >= PreviewRecords {
			break
		}
		ew.printf("%d. %s\n", i+1, FormatRecord(rec))
	}

	ew.printf("\n%s\n", r.render(r.label, "JSON文件内容预览:"))
	ew.printf("%s\n", Excerpt(s.Written, PreviewRunes))
	return ew.err
}

// FormatRecord 以单行文本展示一条记录（键序与输出文档一致）。
func FormatRecord(rec contract.ContactRecord) string {
	return fmt.Sprintf("{name: %s, department: %s, position: %s, officePhone: %s, mobilePhone: %s}",
		rec.Name, rec.Department, rec.Position, rec.OfficePhone, rec.MobilePhone)
}

// Excerpt 返回 b 的前 n 个字符（按 rune）并追加 "..."（无论是否截断）。
func Excerpt(b []byte, n int) string {
	if n < 0 {
		n = 0
	}
	i, count := 0, 0
	for i < len(b) && count < n {
		_, size := utf8.DecodeRune(b[i:])
		i += size
		count++
	}
	return string(b[:i]) + "..."
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
