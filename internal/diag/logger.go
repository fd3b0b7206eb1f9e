package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 为组件/阶段事件日志器：单行 JSON（zap 编码），携带 corr_id。
// 字段：level, ts, corr_id, comp, stage(start|finish|error), code, dur_ms, count, file_id, msg, kv。
type Logger struct {
	z    *zap.Logger
	sink *RotatingFile
}

// NewLogger 通过配置的 level 初始化，并将日志写入 logs/ 目录，10 MiB 轮转。
func NewLogger(corrID, level string) *Logger {
	return NewLoggerIn(corrID, level, "logs")
}

// NewLoggerIn 与 NewLogger 相同，但写入指定目录；dir 为空时写 stderr。
func NewLoggerIn(corrID, level, dir string) *Logger {
	if d := strings.TrimSpace(dir); d == "" || d == "-" {
		return NewLoggerTo(corrID, level, os.Stderr)
	}
	sink := NewRotatingFile(dir, 10*1024*1024)
	l := newLogger(corrID, level, zapcore.Lock(&fallbackSyncer{primary: sink, fallback: os.Stderr}))
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写入任意 io.Writer（测试/管道场景）。
func NewLoggerTo(corrID, level string, w io.Writer) *Logger {
	return newLogger(corrID, level, zapcore.AddSync(w))
}

// Nop 返回丢弃一切输出的日志器。
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

func newLogger(corrID, level string, ws zapcore.WriteSyncer) *Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		LevelKey:       "level",
		TimeKey:        "ts",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     utcRFC3339,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
	core := zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(ParseLevel(level)))
	return &Logger{z: zap.New(core).With(zap.String("corr_id", corrID))}
}

// ParseLevel 解析日志等级；未知值回退 info。
func ParseLevel(s string) zapcore.Level {
	lv, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lv
}

func utcRFC3339(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339))
}

// Zap 暴露底层 zap.Logger（供需要自由字段的调用方使用）。
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.z == nil {
		return zap.NewNop()
	}
	return l.z
}

// Sync 刷新缓冲并关闭轮转文件。
func (l *Logger) Sync() error {
	if l == nil || l.z == nil {
		return nil
	}
	err := l.z.Sync()
	if l.sink != nil {
		if cerr := l.sink.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func kvFields(kv map[string]string) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	return []zap.Field{zap.Any("kv", kv)}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWith(comp, msg, "")
}

// StartWith 记录带 file_id 的 start。
func (l *Logger) StartWith(comp, msg, fileID string) *Timer {
	l.Zap().Info(msg, eventFields(comp, "start", fileID)...)
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// Error 记录 error 事件（不采样）。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "")
}

// ErrorWith 支持 file_id。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID string) {
	fs := eventFields(comp, "error", fileID)
	fs = append(fs, zap.String("code", code))
	if durSince != nil {
		fs = append(fs, zap.Int64("dur_ms", time.Since(*durSince).Milliseconds()))
	}
	l.Zap().Error(msg, fs...)
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, fileID string, kv map[string]string) {
	z := l.Zap()
	if !z.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	z.Debug(msg, append(eventFields(comp, "start", fileID), kvFields(kv)...)...)
}

func eventFields(comp, stage, fileID string) []zap.Field {
	fs := []zap.Field{zap.String("comp", comp), zap.String("stage", stage)}
	if fileID != "" {
		fs = append(fs, zap.String("file_id", fileID))
	}
	return fs
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	fs := eventFields(t.comp, "finish", t.fileID)
	fs = append(fs, zap.Int64("dur_ms", t.Elapsed().Milliseconds()))
	if count != 0 {
		fs = append(fs, zap.Int64("count", count))
	}
	t.l.Zap().Info(msg, fs...)
}

// Since 返回起点（供 Error 的 durSince 使用）。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	return &t.t0
}

// Elapsed 返回自 start 起经过的时长。
func (t *Timer) Elapsed() time.Duration {
	if t == nil {
		return 0
	}
	return time.Since(t.t0)
}

// fallbackSyncer: 主 sink 写失败时提示一次并改写 fallback。
type fallbackSyncer struct {
	primary  zapcore.WriteSyncer
	fallback io.Writer
	warned   bool
}

func (s *fallbackSyncer) Write(p []byte) (int, error) {
	n, err := s.primary.Write(p)
	if err == nil {
		return n, nil
	}
	if !s.warned {
		s.warned = true
		fmt.Fprintf(s.fallback, "logger sink error: %v\n", err)
	}
	return s.fallback.Write(p)
}

func (s *fallbackSyncer) Sync() error { return s.primary.Sync() }
