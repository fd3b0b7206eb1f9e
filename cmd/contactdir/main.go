package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "contactdir/internal/config"
	"contactdir/internal/diag"
	"contactdir/internal/pipeline"
	"contactdir/internal/report"
	"contactdir/internal/theme"
	"contactdir/pkg/contract"
)

var pipelineRun = pipeline.Run

// 退出码：0 成功；1 运行期失败；3 配置/用法错误。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// 无参数运行即按默认路径转换：dhb.xlsx → app/src/main/assets/employees.json。
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cliFlags struct {
	config       string
	input        string
	output       string
	seed         string
	officePrefix string
	position     string
	theme        string
	fontSize     string
	logLevel     string
	metricsFile  string
	initDir      string
	status       bool
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	corrID string
	start  time.Time
	logger *diag.Logger
	flags  cliFlags
	code   int
}

func run(args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = godotenv.Load(".env")
	a := &app{
		stdout: stdout,
		stderr: stderr,
		corrID: uuid.NewString(),
		start:  time.Now(),
		logger: diag.Nop(),
	}
	root := a.newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		// cobra 自身的用法错误（未知旗标、参数个数等）
		fprintf(stderr, "用法错误: %v\n", err)
		return exitConfig
	}
	return a.code
}

func (a *app) newRootCommand() *cobra.Command {
	f := &a.flags
	root := &cobra.Command{
		Use:           "contactdir",
		Short:         "将人员导出表转换为经校验的 JSON 通讯录",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(f.initDir) != "" {
				return a.initConfig(strings.TrimSpace(f.initDir))
			}
			return a.convert(cmd.Context())
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.config, "config", "", "配置文件路径（JSON）；缺省读取 ./config.json（若存在）")
	pf.StringVar(&f.output, "output", "", "目录文档输出路径（覆盖配置）")
	pf.StringVar(&f.logLevel, "log-level", "", "日志等级 debug|info|warn|error（覆盖配置）")

	fl := root.Flags()
	fl.StringVar(&f.input, "input", "", "源表路径；\"-\" 表示 STDIN（CSV）")
	fl.StringVar(&f.seed, "seed", "", "办公电话合成种子（整数）；缺省按时间播种")
	fl.StringVar(&f.officePrefix, "office-prefix", "", "办公电话 4 位区号")
	fl.StringVar(&f.position, "position", "", "记录的固定职位")
	fl.StringVar(&f.theme, "theme", "", "控制台汇总主题 light|dark")
	fl.StringVar(&f.fontSize, "font-size", "", "客户端字号集合 small|medium|large|extra_large；仅校验并记录，不影响控制台输出")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "运行结束后以文本格式写出指标")
	fl.StringVar(&f.initDir, "init-config", "", "在指定目录生成 config.json 与 .env 模板（不覆盖已有文件）；不带值时为当前目录")
	fl.Lookup("init-config").NoOptDefVal = "."
	fl.BoolVar(&f.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")

	root.AddCommand(a.newDepartmentsCommand(), a.newPositionsCommand(), a.newSearchCommand())
	return root
}

// loadConfig 按 Defaults ← JSON ← ENV ← CLI 的顺序合并并校验。
func (a *app) loadConfig() (cfgpkg.Config, error) {
	f := a.flags
	var cfgJSON []byte
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	path := f.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}

	cfg := cfgpkg.Defaults()
	if path != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.LoadJSON(path, cfgJSON)
		if err != nil {
			return cfg, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	overCLI := cfgpkg.Config{
		Input:        f.input,
		Output:       f.output,
		Position:     f.position,
		OfficePrefix: f.officePrefix,
		Theme:        f.theme,
		FontSize:     f.fontSize,
		Logging:      cfgpkg.Logging{Level: f.logLevel},
	}
	if strings.TrimSpace(f.seed) != "" {
		seed, err := cfgpkg.ParseSeed(f.seed)
		if err != nil {
			return cfg, fmt.Errorf("--seed: %w", err)
		}
		overCLI.Seed = seed
	}
	cfg = cfgpkg.Merge(cfg, overCLI)

	if err := cfgpkg.Validate(cfg); err != nil {
		_ = dumpConfig(a.stderr, cfg)
		return cfg, err
	}
	return cfg, nil
}

func (a *app) convert(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return a.fail(exitConfig, "配置校验失败", err)
	}
	// 使用最终配置中的日志等级与目录重建 logger
	a.logger = diag.NewLoggerIn(a.corrID, cfg.Logging.Level, cfg.Logging.Dir)
	defer func() { _ = a.logger.Sync() }()

	fs := afero.NewOsFs()
	// 预检仅作提示：目标不可写时仍先加载源，由 Writer 上报 WriteError。
	if err := preflightOutputDir(fs, filepath.Dir(cfg.Output)); err != nil {
		fprintf(a.stderr, "提示：输出目录可能不可写: %v\n", err)
		a.logger.Zap().Warn("output dir preflight failed",
			zap.String("comp", "writer"), zap.String("stage", "preflight"), zap.Error(err))
	}
	comp, set, err := cfgpkg.Assemble(cfg, fs)
	if err != nil {
		return a.fail(exitConfig, "装配失败", err)
	}
	th, err := theme.Resolve(cfg.Theme)
	if err != nil {
		return a.fail(exitConfig, "装配失败", err)
	}
	comp.Reporter = report.NewAuto(a.stdout, th)

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	term := diag.NewTerminal(a.stderr, a.flags.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	a.logger.DebugStart("config", "effective", "", map[string]string{
		"input":         cfg.Input,
		"output":        cfg.Output,
		"position":      cfg.Position,
		"office_prefix": cfg.OfficePrefix,
		"seeded":        fmt.Sprintf("%t", cfg.Seed != nil),
		"theme":         cfg.Theme,
		"font_size":     cfg.FontSize,
		"reader":        cfg.Components.Reader,
		"loader":        cfg.Components.Loader,
		"assembler":     cfg.Components.Assembler,
		"writer":        cfg.Components.Writer,
	})

	t := a.logger.Start("pipeline", "run")
	res, err := pipelineRun(ctx, comp, set, a.logger)
	if err != nil {
		code := string(diag.Classify(err))
		a.logger.Error("pipeline", code, "first error", &a.start)
		diag.IncOp("pipeline", "error", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(a.stderr, "运行失败: %v\n", err)
		}
		a.writeMetrics()
		a.code = exitRuntime
		return nil
	}
	t.Finish("run", int64(res.Stats.Accepted))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(a.start).Milliseconds())
	a.writeMetrics()
	a.code = exitOK
	return nil
}

// fail 记录首个错误并设置退出码；错误已在此输出，不再交给 cobra。
func (a *app) fail(code int, prefix string, err error) error {
	fprintf(a.stderr, "%s: %v\n", prefix, err)
	a.logger.Error("pipeline", string(diag.Classify(err)), "first error", &a.start)
	a.code = code
	return nil
}

// writeMetrics 仅在 --metrics-file 给出时写出；失败只提示，不影响退出码。
func (a *app) writeMetrics() {
	path := strings.TrimSpace(a.flags.metricsFile)
	if path == "" {
		return
	}
	if err := diag.Default().WriteTextfile(path); err != nil {
		fprintf(a.stderr, "提示：指标写出失败（已跳过）：%v\n", err)
	}
}

func (a *app) initConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return a.fail(exitConfig, "生成默认配置失败", err)
	}
	cfgPath := filepath.Join(dir, "config.json")
	if err := writeConfig(a.stdout, cfgPath, cfgpkg.DefaultTemplateConfig()); err != nil {
		if !os.IsExist(err) {
			return a.fail(exitConfig, "生成默认配置失败", err)
		}
		fprintf(a.stderr, "提示：%s 已存在（已跳过）\n", cfgPath)
	}
	if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
		fprintf(a.stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
	}
	a.code = exitOK
	return nil
}

func fprintf(w io.Writer, format string, args ...any) { _, _ = fmt.Fprintf(w, format, args...) }

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "有效配置:\n%s\n", b)
	return err
}

// writeConfig 写出配置模板；path 为 "-" 时写 stdout。已存在的文件不覆盖。
func writeConfig(stdout io.Writer, path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "-" {
		_, err = stdout.Write(b)
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(b)
	return err
}

// writeDotEnv 生成 .env 模板；文件已存在时跳过。
func writeDotEnv(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(cfgpkg.DotEnvTemplate())
	return err
}

// preflightOutputDir 在运行前检查输出目录可写（仅提示，不中止运行）：
// 目录存在时尝试创建并删除临时文件；不存在时对最近的已存在祖先目录做同样检查。
func preflightOutputDir(fs afero.Fs, dir string) error {
	d := filepath.Clean(dir)
	for {
		st, err := fs.Stat(d)
		switch {
		case err == nil && !st.IsDir():
			return fmt.Errorf("%w: 路径存在但不是目录: %s", contract.ErrConfigInvalid, d)
		case err == nil:
			f, err := afero.TempFile(fs, d, ".wcheck-*")
			if err != nil {
				return err
			}
			name := f.Name()
			_ = f.Close()
			_ = fs.Remove(name)
			return nil
		case !os.IsNotExist(err):
			return err
		}
		parent := filepath.Dir(d)
		if parent == d {
			return fmt.Errorf("%w: 无法确定父目录: %s", contract.ErrConfigInvalid, dir)
		}
		d = parent
	}
}
