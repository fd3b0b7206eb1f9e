package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"contactdir/internal/diag"
	"contactdir/internal/normalize"
	"contactdir/internal/report"
	"contactdir/pkg/contract"
)

// - 单线程顺序批处理：不启动 goroutine；ctx 在行间检查。
// - 首错终止：Load/Assemble/Write 任一失败立即返回，不写残缺输出。
// - 行级数据缺陷不是错误：不完整行计入 Rejected 后丢弃。

// OfficePhoner 为每条接受的记录产出办公电话。
type OfficePhoner interface {
	OfficePhone() string
}

// Reporter 消费运行汇总（仅观测，不影响结果）。
type Reporter interface {
	Report(s report.Summary) error
}

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Loader    contract.TableLoader
	Synth     OfficePhoner
	Assembler contract.Assembler
	Writer    contract.Writer
	// Reporter 可选；为 nil 时跳过汇总输出。
	Reporter Reporter
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Input string
	// Artifact: 交给 Writer 的工件标识；OutputPath 仅用于回显。
	Artifact   contract.ArtifactID
	OutputPath string
	Columns    []contract.Column
	Position   string
}

// Stats: 行计数。SourceRows 含表头。
type Stats struct {
	SourceRows int
	DataRows   int
	Accepted   int
	Rejected   int
}

// Result: 一次成功运行的产出。Bytes 为实际写出的字节。
type Result struct {
	Stats    Stats
	Document contract.Document
	Bytes    []byte
}

// Run 执行完整流水线：Load → Normalize → Filter → Synthesize → Assemble → Write → Report。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Result, error) {
	if err := sanity(comp, set); err != nil {
		return Result{}, fmt.Errorf("sanity: %w", err)
	}
	if logger == nil {
		logger = diag.Nop()
	}
	runStart := time.Now()
	term := diag.GetTerminal()
	term.RunStart(set.Input, set.OutputPath)
	var res Result
	ok := false
	defer func() { term.RunFinish(ok, res.Stats.Accepted, time.Since(runStart)) }()

	// 加载 + 逐行规范化/过滤/合成
	term.Stage("load")
	var entries []contract.Entry
	var fid contract.FileID
	ltimer := logger.StartWith("loader", "load", set.Input)
	err := comp.Reader.Open(ctx, set.Input, func(fileID contract.FileID, r io.Reader) error {
		fid = fileID
		return comp.Loader.Load(ctx, fileID, r, set.Columns, func(row contract.RawRow) error {
			res.Stats.DataRows++
			term.RowProgress(res.Stats.DataRows)
			n := normalize.Normalize(row)
			if !normalize.Accept(n) {
				res.Stats.Rejected++
				logger.DebugStart("filter", "row rejected", string(fileID), map[string]string{"line": strconv.Itoa(row.Line)})
				return nil
			}
			entries = append(entries, contract.Entry{Line: n.Line, Record: contract.ContactRecord{
				Name:        n.Name,
				Department:  n.Department,
				Position:    set.Position,
				OfficePhone: comp.Synth.OfficePhone(),
				MobilePhone: n.MobilePhone,
			}})
			return nil
		})
	})
	if err != nil {
		stageError(logger, "loader", "load failed", err, ltimer, set.Input)
		return Result{}, fmt.Errorf("loader load: %w", err)
	}
	res.Stats.SourceRows = res.Stats.DataRows + 1
	res.Stats.Accepted = len(entries)
	ltimer.Finish("load", int64(res.Stats.DataRows))
	stageOK("loader", ltimer)
	diag.AddRows("accepted", res.Stats.Accepted)
	diag.AddRows("rejected", res.Stats.Rejected)

	// 装配
	term.Stage("assemble")
	atimer := logger.StartWith("assembler", "assemble", string(fid))
	b, err := comp.Assembler.Assemble(ctx, entries)
	if err != nil {
		stageError(logger, "assembler", "assemble failed", err, atimer, string(fid))
		return Result{}, fmt.Errorf("assembler assemble: %w", err)
	}
	atimer.Finish("assemble", int64(len(entries)))
	stageOK("assembler", atimer)

	// 写出（原子）
	term.Stage("write")
	wtimer := logger.StartWith("writer", "write", string(set.Artifact))
	if err := comp.Writer.Write(ctx, set.Artifact, bytes.NewReader(b)); err != nil {
		stageError(logger, "writer", "write failed", err, wtimer, string(set.Artifact))
		return Result{}, fmt.Errorf("writer write: %w", err)
	}
	wtimer.Finish("write", int64(len(b)))
	stageOK("writer", wtimer)

	res.Bytes = b
	res.Document = make(contract.Document, 0, len(entries))
	for _, e := range entries {
		res.Document = append(res.Document, e.Record)
	}
	ok = true

	// 汇总（观测失败只记日志）
	if comp.Reporter != nil {
		term.Stage("report")
		rerr := comp.Reporter.Report(report.Summary{
			Columns:    set.Columns,
			SourceRows: res.Stats.SourceRows,
			DataRows:   res.Stats.DataRows,
			Accepted:   res.Stats.Accepted,
			Rejected:   res.Stats.Rejected,
			Output:     set.OutputPath,
			Records:    res.Document,
			Written:    res.Bytes,
		})
		if rerr != nil {
			logger.Error("report", string(diag.Classify(rerr)), "report failed: "+rerr.Error(), nil)
			diag.IncOp("report", "error", "error")
		}
	}
	return res, nil
}

func stageOK(comp string, t *diag.Timer) {
	diag.IncOp(comp, "finish", "success")
	diag.ObserveDuration(comp, "finish", t.Elapsed().Milliseconds())
}

func stageError(logger *diag.Logger, comp, msg string, err error, t *diag.Timer, fileID string) {
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), msg+": "+err.Error(), t.Since(), fileID)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Loader == nil || c.Synth == nil || c.Assembler == nil || c.Writer == nil {
		return fmt.Errorf("%w: pipeline: missing components", contract.ErrInvalidInput)
	}
	if s.Input == "" {
		return fmt.Errorf("%w: pipeline: empty input", contract.ErrInvalidInput)
	}
	if s.Artifact == "" {
		return fmt.Errorf("%w: pipeline: empty artifact", contract.ErrInvalidInput)
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: pipeline: no columns", contract.ErrInvalidInput)
	}
	return nil
}
