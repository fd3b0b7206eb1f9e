package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 与无参数运行等价（dhb.xlsx → app/src/main/assets/employees.json）；
// - 组件名采用仓库内置实现；
// - 选项给出全部键与安全中性默认值。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536
}`)
	// loader 选项随所选实现变化；auto 按扩展名选择时保持空对象
	cfg.Options.Loader = json.RawMessage(`{}`)
	cfg.Options.Assembler = json.RawMessage(`{
  "indent": 2
}`)
	// output_dir 由 output 派生，此处不列出
	cfg.Options.Writer = json.RawMessage(`{
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}

// DotEnvTemplate 返回 .env 模板内容（全部键留空，表示未设置）。
func DotEnvTemplate() string {
	return `# contactdir .env 模板（由 --init-config 生成）
# 优先级：CLI > ENV(.env) > JSON > 默认值
# 空值表示未设置。

# 配置来源（可二选一）
CONTACTDIR_CONFIG_FILE=
CONTACTDIR_CONFIG_JSON=

# 运行参数覆盖
CONTACTDIR_INPUT=
CONTACTDIR_OUTPUT=
CONTACTDIR_POSITION=
CONTACTDIR_OFFICE_PREFIX=
CONTACTDIR_SEED=
CONTACTDIR_THEME=
CONTACTDIR_FONT_SIZE=
CONTACTDIR_LOG_LEVEL=
CONTACTDIR_LOG_DIR=

# 组件选择
CONTACTDIR_READER=
CONTACTDIR_LOADER=
CONTACTDIR_ASSEMBLER=
CONTACTDIR_WRITER=
`
}
