package contract

import "strconv"

// FileID: 逻辑源标识（通常为路径，需规范化，跨平台一致）。
type FileID string

// CellKind: 原始单元格的底层表示类别。
type CellKind int

const (
	// KindNull: 空/缺失单元格。
	KindNull CellKind = iota
	// KindText: 文本单元格（原样保留，不做裁剪）。
	KindText
	// KindNumber: 数值单元格；Value 保存源中的数值文本（可能含小数点或科学计数法）。
	KindNumber
)

func (k CellKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "null"
	}
}

// Cell: 未定型标量。
type Cell struct {
	Kind  CellKind
	Value string
}

// Null 返回空单元格。
func Null() Cell { return Cell{} }

// Text 返回文本单元格。
func Text(s string) Cell { return Cell{Kind: KindText, Value: s} }

// Number 以源数值文本构造数值单元格（例如 "13812345678"、"1.3812345678E10"）。
func Number(raw string) Cell { return Cell{Kind: KindNumber, Value: raw} }

// Float 以浮点数构造数值单元格（最短往返表示，不丢精度）。
func Float(f float64) Cell {
	return Cell{Kind: KindNumber, Value: strconv.FormatFloat(f, 'g', -1, 64)}
}

// IsNull 报告单元格是否为空。
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// Field: 目录记录中可由源表映射的字段名。
type Field string

const (
	FieldName        Field = "name"
	FieldMobilePhone Field = "mobilePhone"
	FieldDepartment  Field = "department"
)

// Column: 按位置映射的一列；Label 仅用于回显，不参与匹配。
type Column struct {
	Field Field  `json:"field" validate:"required,column_field"`
	Label string `json:"label"`
}

// DefaultColumns: 源表固定列序（姓名、电话、科室）。
func DefaultColumns() []Column {
	return []Column{
		{Field: FieldName, Label: "姓名"},
		{Field: FieldMobilePhone, Label: "电话"},
		{Field: FieldDepartment, Label: "科室"},
	}
}

// RawRow: 单行原始输入（校验前）。
// 约束：
// - Line 为源中 1 基行号（表头为 1），严格递增；
// - 各字段为未定型标量，可能为 Null。
type RawRow struct {
	Line        int
	Name        Cell
	Department  Cell
	MobilePhone Cell
}

// Normalized: 规范化后的部分记录（Position/OfficePhone 尚未设置）。
type Normalized struct {
	Line        int
	Name        string
	Department  string
	MobilePhone string
}

// ContactRecord: 规范输出实体。字段声明顺序即 JSON 键顺序。
type ContactRecord struct {
	Name        string `json:"name"`
	Department  string `json:"department"`
	Position    string `json:"position"`
	OfficePhone string `json:"officePhone"`
	MobilePhone string `json:"mobilePhone"`
}

// Entry: 带源行号的最终记录，供装配器校验顺序。
type Entry struct {
	Line   int
	Record ContactRecord
}

// Document: 有序记录序列；写出后不可变。
type Document []ContactRecord

// MaxMobileLen: mobilePhone 的最大字符数。
const MaxMobileLen = 11
