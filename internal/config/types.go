package config

import (
	"encoding/json"

	"contactdir/pkg/contract"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Input: 源表路径；"-" 表示 STDIN（按 CSV 解析）。
	Input string `json:"input" validate:"required"`
	// Output: 目录文档输出路径；父目录不存在时自动创建。
	Output string `json:"output" validate:"required"`
	// Columns: 源表列序（按位置映射），恰好覆盖 name/mobilePhone/department 各一次。
	Columns []contract.Column `json:"columns" validate:"len=3,unique=Field,dive"`
	// Position: 每条记录的固定职位。
	Position string `json:"position" validate:"required"`
	// OfficePrefix: 合成办公电话的 4 位区号。
	OfficePrefix string `json:"office_prefix" validate:"office_prefix"`
	// Seed: 合成随机源种子；nil 表示按时间播种（每次运行不同）。
	Seed *int64 `json:"seed,omitempty"`
	// Theme: 控制台汇总所用的配色主题。
	// FontSize: 客户端字号集合；终端无字号概念，此处仅校验并记录到调试日志。
	Theme    string `json:"theme" validate:"theme_name"`
	FontSize string `json:"font_size" validate:"font_size"`

	Logging Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与目录；目录为 "-" 时写 stderr。
type Logging struct {
	Level string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `json:"dir"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Loader    string `json:"loader"`
	Assembler string `json:"assembler"`
	Writer    string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
// writer.output_dir 总是由 output 的父目录派生。
type Options struct {
	Reader    json.RawMessage `json:"reader,omitempty"`
	Loader    json.RawMessage `json:"loader,omitempty"`
	Assembler json.RawMessage `json:"assembler,omitempty"`
	Writer    json.RawMessage `json:"writer,omitempty"`
}
