package diag

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 汇总运行期指标（私有 Registry，不暴露 HTTP 端点）：
// - contactdir_op_total{comp,stage,result}
// - contactdir_error_total{comp,code}
// - contactdir_op_duration_ms{comp,stage}
// - contactdir_rows_total{result}
type Metrics struct {
	reg  *prometheus.Registry
	ops  *prometheus.CounterVec
	errs *prometheus.CounterVec
	dur  *prometheus.HistogramVec
	rows *prometheus.CounterVec
}

// NewMetrics 创建并注册一组新的指标。
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contactdir",
			Name:      "op_total",
			Help:      "Stage operations by result.",
		}, []string{"comp", "stage", "result"}),
		errs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contactdir",
			Name:      "error_total",
			Help:      "Errors by classified code.",
		}, []string{"comp", "code"}),
		dur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contactdir",
			Name:      "op_duration_ms",
			Help:      "Stage duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}, []string{"comp", "stage"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contactdir",
			Name:      "rows_total",
			Help:      "Data rows by filter result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(m.ops, m.errs, m.dur, m.rows)
	return m
}

// Registry 返回底层 Registry。
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// WriteTextfile 以文本暴露格式写出全部指标（node_exporter textfile 约定）。
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

var (
	stdMu sync.RWMutex
	std   = NewMetrics()
)

// Default 返回进程级指标集合。
func Default() *Metrics { stdMu.RLock(); defer stdMu.RUnlock(); return std }

// SetDefault 替换进程级指标集合（测试隔离用）；nil 时重建。
func SetDefault(m *Metrics) {
	if m == nil {
		m = NewMetrics()
	}
	stdMu.Lock()
	std = m
	stdMu.Unlock()
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	Default().ops.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	Default().errs.WithLabelValues(comp, code).Inc()
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	Default().dur.WithLabelValues(comp, stage).Observe(float64(durMS))
}

// AddRows 累加行计数（result=accepted|rejected）。
func AddRows(result string, n int) {
	if n <= 0 {
		return
	}
	Default().rows.WithLabelValues(result).Add(float64(n))
}
