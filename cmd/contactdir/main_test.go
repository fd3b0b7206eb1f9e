package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "contactdir/internal/config"
	"contactdir/internal/diag"
	"contactdir/internal/pipeline"
)

var envKeys = []string{
	"CONFIG_FILE", "CONFIG_JSON", "INPUT", "OUTPUT", "POSITION", "OFFICE_PREFIX", "SEED",
	"THEME", "FONT_SIZE", "LOG_LEVEL", "LOG_DIR", "READER", "LOADER", "ASSEMBLER", "WRITER",
}

const sampleCSV = "姓名,电话,科室\n张三,13812345678,内科\n,13900000000,外科\n李四,13700000000,\n"

// sandbox 切换到临时工作目录并清空 CONTACTDIR_ 变量（结束后恢复）。
func sandbox(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		key := "CONTACTDIR_" + k
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
	return dir
}

func runCLI(args ...string) (int, string, string) {
	var out, errb bytes.Buffer
	code := run(args, &out, &errb)
	return code, out.String(), errb.String()
}

// UT-CLI-01: 端到端转换 CSV，输出汇总与文档
func TestRunConvert(t *testing.T) {
	dir := sandbox(t)
	require.NoError(t, os.WriteFile("in.csv", []byte(sampleCSV), 0o644))

	code, stdout, stderr := runCLI("--input", "in.csv", "--output", "out/a/employees.json",
		"--seed", "1", "--status=false", "--log-level", "error", "--metrics-file", "metrics.prom")
	require.Equal(t, exitOK, code, stderr)

	b, err := os.ReadFile(filepath.Join(dir, "out", "a", "employees.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"name": "张三"`)
	assert.NotContains(t, string(b), "李四")
	assert.Contains(t, stdout, "已接受:")
	assert.Contains(t, stdout, "JSON文件内容预览:")

	m, err := os.ReadFile("metrics.prom")
	require.NoError(t, err)
	assert.Contains(t, string(m), "contactdir_rows_total")

	// 相同种子逐字节一致
	code, _, stderr = runCLI("--input", "in.csv", "--output", "out/b.json", "--seed", "1", "--status=false")
	require.Equal(t, exitOK, code, stderr)
	b2, err := os.ReadFile(filepath.Join(dir, "out", "b.json"))
	require.NoError(t, err)
	assert.Equal(t, string(b), string(b2))
}

// UT-CLI-02: 配置/用法错误返回 3
func TestRunConfigErrors(t *testing.T) {
	sandbox(t)
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"bad prefix", []string{"--office-prefix", "12"}, "配置校验失败"},
		{"bad seed", []string{"--seed", "x"}, "配置校验失败"},
		{"bad theme", []string{"--theme", "neon"}, "有效配置"},
		{"unknown flag", []string{"--llm", "openai"}, "用法错误"},
		{"stray arg", []string{"extra"}, "用法错误"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(tt.args...)
			assert.Equal(t, exitConfig, code)
			assert.Contains(t, stderr, tt.want)
		})
	}

	t.Setenv("CONTACTDIR_SEED", "abc")
	code, _, _ := runCLI()
	assert.Equal(t, exitConfig, code)
}

// UT-CLI-03: 源缺失属运行期失败
func TestRunMissingInput(t *testing.T) {
	sandbox(t)
	code, _, stderr := runCLI("--status=false", "--output", "o.json")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, stderr, "运行失败")
	_, err := os.Stat("o.json")
	assert.True(t, os.IsNotExist(err))
}

// UT-CLI-09: 目标不可创建时源错误优先；源正常时归类为写出失败
func TestRunBlockedOutput(t *testing.T) {
	sandbox(t)
	require.NoError(t, os.WriteFile("blocker", []byte("x"), 0o644))

	code, _, stderr := runCLI("--status=false", "--input", "missing.csv", "--output", "blocker/employees.json")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, stderr, "提示：输出目录可能不可写")
	assert.Contains(t, stderr, "运行失败: loader load")
	assert.NotContains(t, stderr, "writer write")

	require.NoError(t, os.WriteFile("in.csv", []byte(sampleCSV), 0o644))
	code, _, stderr = runCLI("--status=false", "--input", "in.csv", "--output", "blocker/employees.json",
		"--metrics-file", "metrics.prom")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, stderr, "运行失败: writer write")
	m, err := os.ReadFile("metrics.prom")
	require.NoError(t, err)
	assert.Contains(t, string(m), `contactdir_error_total{code="write",comp="writer"}`)
}

// UT-CLI-10: 帮助文本说明 --font-size 仅校验不影响输出
func TestHelpFontSize(t *testing.T) {
	sandbox(t)
	code, stdout, _ := runCLI("--help")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "--font-size")
	assert.Contains(t, stdout, "仅校验并记录，不影响控制台输出")

	code, stdout, stderr := runCLI("--status=false", "--font-size", "huge")
	assert.Equal(t, exitConfig, code, stdout)
	assert.Contains(t, stderr, "font_size")
}

// UT-CLI-04: 取消时不输出失败提示
func TestRunCanceled(t *testing.T) {
	sandbox(t)
	old := pipelineRun
	t.Cleanup(func() { pipelineRun = old })
	pipelineRun = func(context.Context, pipeline.Components, pipeline.Settings, *diag.Logger) (pipeline.Result, error) {
		return pipeline.Result{}, context.Canceled
	}
	code, _, stderr := runCLI("--status=false", "--output", "o.json")
	assert.Equal(t, exitRuntime, code)
	assert.NotContains(t, stderr, "运行失败")
}

// UT-CLI-05: .env 与 JSON 配置分层
func TestRunEnvLayers(t *testing.T) {
	dir := sandbox(t)
	require.NoError(t, os.WriteFile("export.csv", []byte(sampleCSV), 0o644))
	require.NoError(t, os.WriteFile("config.json", []byte(`{"output":"from-json.json","position":"医生","seed":3}`), 0o644))
	require.NoError(t, os.WriteFile(".env", []byte("CONTACTDIR_INPUT=export.csv\nCONTACTDIR_OFFICE_PREFIX=0713\n"), 0o644))

	code, _, stderr := runCLI("--status=false")
	require.Equal(t, exitOK, code, stderr)
	b, err := os.ReadFile(filepath.Join(dir, "from-json.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"position": "医生"`)
	assert.Contains(t, string(b), `"officePhone": "0713-`)
}

// UT-CLI-06: --init-config 生成模板且不覆盖
func TestInitConfig(t *testing.T) {
	dir := sandbox(t)
	code, _, stderr := runCLI("--init-config=cfg")
	require.Equal(t, exitOK, code, stderr)
	for _, name := range []string{"config.json", ".env"} {
		_, err := os.Stat(filepath.Join(dir, "cfg", name))
		require.NoError(t, err, name)
	}
	require.NoError(t, os.WriteFile(filepath.Join("cfg", ".env"), []byte("KEEP=1\n"), 0o644))
	code, _, stderr = runCLI("--init-config=cfg")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "已存在")
	env, err := os.ReadFile(filepath.Join("cfg", ".env"))
	require.NoError(t, err)
	assert.Equal(t, "KEEP=1\n", string(env))

	// 裸开关写入当前目录
	code, _, _ = runCLI("--init-config")
	require.Equal(t, exitOK, code)
	_, err = os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err)
}

// UT-CLI-07: 目录查询子命令
func TestDirectoryCommands(t *testing.T) {
	sandbox(t)
	doc := `[
  {"name": "张三", "department": "内科", "position": "职工", "officePhone": "0712-1234567", "mobilePhone": "13812345678"},
  {"name": "李四", "department": "外科", "position": "医生", "officePhone": "0712-7654321", "mobilePhone": ""},
  {"name": "王五", "department": "内科", "position": "职工", "officePhone": "0712-1111111", "mobilePhone": "1"}
]`
	require.NoError(t, os.WriteFile("doc.json", []byte(doc), 0o644))

	code, stdout, _ := runCLI("departments", "doc.json")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "内科\t2\n外科\t1\n", stdout)

	code, stdout, _ = runCLI("positions", "doc.json", "--json")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, `"employeeCount": 2`)

	code, stdout, _ = runCLI("search", "内", "doc.json")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "张三")
	assert.Contains(t, stdout, "王五")
	assert.Contains(t, stdout, "共 2 条")

	code, stdout, _ = runCLI("search", "医", "doc.json", "--by", "position")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "共 1 条")

	code, _, _ = runCLI("search", "x", "doc.json", "--by", "email")
	assert.Equal(t, exitConfig, code)

	code, _, stderr := runCLI("departments", "missing.json")
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, stderr, "读取目录文档失败")

	// 缺省读取配置中的 output
	code, stdout, _ = runCLI("departments", "--output", "doc.json")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "外科")
}

// UT-CLI-08: 输出目录预检
func TestPreflightOutputDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("base", 0o755))
	require.NoError(t, preflightOutputDir(fs, "base"))
	require.NoError(t, preflightOutputDir(fs, "base/x/y"))
	entries, err := afero.ReadDir(fs, "base")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, afero.WriteFile(fs, "file", []byte("x"), 0o644))
	assert.Error(t, preflightOutputDir(fs, "file"))

	ro := afero.NewReadOnlyFs(fs)
	assert.Error(t, preflightOutputDir(ro, "base"))
}

func TestWriteConfigStdout(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeConfig(&out, "-", cfgpkg.DefaultTemplateConfig()))
	assert.True(t, strings.HasPrefix(out.String(), "{"))
	assert.Contains(t, out.String(), `"office_prefix": "0712"`)
}
