package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"contactdir/pkg/contract"
)

// EnvPrefix: 环境变量前缀。
const EnvPrefix = "CONTACTDIR_"

// Defaults 返回与一次性转换脚本等价的默认配置：
// dhb.xlsx → app/src/main/assets/employees.json，职位“职工”，区号 0712。
func Defaults() Config {
	return Config{
		Input:        "dhb.xlsx",
		Output:       "app/src/main/assets/employees.json",
		Columns:      contract.DefaultColumns(),
		Position:     "职工",
		OfficePrefix: "0712",
		Theme:        "light",
		FontSize:     "medium",
		Logging:      Logging{Level: "info", Dir: "logs"},
		Components: Components{
			Reader:    "fs",
			Loader:    "auto",
			Assembler: "jsonarray",
			Writer:    "fs",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
// 错误均匹配 contract.ErrConfigInvalid。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", contract.ErrConfigInvalid, err)
		}
		defer f.Close()
		r = f
	default:
		return cfg, fmt.Errorf("%w: no config source provided", contract.ErrConfigInvalid)
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", contract.ErrConfigInvalid, err)
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。空值不覆盖。
func Merge(base, over Config) Config {
	out := base
	out.Columns = cloneColumns(base.Columns)
	// 顶层
	if s := strings.TrimSpace(over.Input); s != "" {
		out.Input = s
	}
	if s := strings.TrimSpace(over.Output); s != "" {
		out.Output = s
	}
	if len(over.Columns) > 0 {
		out.Columns = cloneColumns(over.Columns)
	}
	if s := strings.TrimSpace(over.Position); s != "" {
		out.Position = s
	}
	if s := strings.TrimSpace(over.OfficePrefix); s != "" {
		out.OfficePrefix = s
	}
	// Seed：nil 表示未覆盖；0 是合法种子。
	if over.Seed != nil {
		v := *over.Seed
		out.Seed = &v
	}
	if s := strings.TrimSpace(over.Theme); s != "" {
		out.Theme = s
	}
	if s := strings.TrimSpace(over.FontSize); s != "" {
		out.FontSize = s
	}
	// Logging
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}

	// 组件名
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Loader != "" {
		out.Components.Loader = over.Components.Loader
	}
	if over.Components.Assembler != "" {
		out.Components.Assembler = over.Components.Assembler
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Loader) > 0 {
		out.Options.Loader = cloneRaw(over.Options.Loader)
	}
	if len(over.Options.Assembler) > 0 {
		out.Options.Assembler = cloneRaw(over.Options.Assembler)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合，前缀 CONTACTDIR_）。
// 支持：INPUT, OUTPUT, POSITION, OFFICE_PREFIX, SEED, THEME, FONT_SIZE, LOG_LEVEL, LOG_DIR,
// READER, LOADER, ASSEMBLER, WRITER。CONFIG_FILE/CONFIG_JSON 由入口读取。
// 空值视为未设置；SEED 非整数时返回 ErrConfigInvalid。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		switch key {
		case "INPUT":
			over.Input = val
		case "OUTPUT":
			over.Output = val
		case "POSITION":
			over.Position = val
		case "OFFICE_PREFIX":
			over.OfficePrefix = val
		case "SEED":
			seed, err := ParseSeed(val)
			if err != nil {
				return Config{}, fmt.Errorf("%sSEED: %w", EnvPrefix, err)
			}
			over.Seed = seed
		case "THEME":
			over.Theme = val
		case "FONT_SIZE":
			over.FontSize = val
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "READER":
			over.Components.Reader = val
		case "LOADER":
			over.Components.Loader = val
		case "ASSEMBLER":
			over.Components.Assembler = val
		case "WRITER":
			over.Components.Writer = val
		default:
			// 非本集合的键忽略
		}
	}
	return over, nil
}

// ParseSeed 解析 CLI/ENV 给出的种子文本。
func ParseSeed(s string) (*int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: seed %q: %w", contract.ErrConfigInvalid, s, errors.Unwrap(err))
	}
	return &v, nil
}

func cloneColumns(in []contract.Column) []contract.Column {
	if len(in) == 0 {
		return nil
	}
	out := make([]contract.Column, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
