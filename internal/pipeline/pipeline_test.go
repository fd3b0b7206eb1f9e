package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"contactdir/internal/diag"
	"contactdir/internal/report"
	"contactdir/internal/synth"
	"contactdir/pkg/contract"
	jsonarray "contactdir/plugins/assembler/jsonarray"
	lcsv "contactdir/plugins/loader/csv"
	lxlsx "contactdir/plugins/loader/xlsx"
	rfs "contactdir/plugins/reader/filesystem"
	wfs "contactdir/plugins/writer/filesystem"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const outDir = "app/src/main/assets"

var officeRe = regexp.MustCompile(`^\d{4}-\d{7}$`)

type fixedPhone string

func (f fixedPhone) OfficePhone() string { return string(f) }

type captureReporter struct {
	got report.Summary
	err error
}

func (c *captureReporter) Report(s report.Summary) error {
	c.got = s
	return c.err
}

func newComponents(t *testing.T, fs afero.Fs, loader contract.TableLoader, phones OfficePhoner) Components {
	t.Helper()
	asm, err := jsonarray.New(nil)
	require.NoError(t, err)
	w, err := wfs.New(fs, &wfs.Options{OutputDir: outDir})
	require.NoError(t, err)
	return Components{
		Reader:    rfs.New(fs, nil),
		Loader:    loader,
		Synth:     phones,
		Assembler: asm,
		Writer:    w,
	}
}

func csvLoader(t *testing.T) contract.TableLoader {
	t.Helper()
	l, err := lcsv.New(&lcsv.Options{})
	require.NoError(t, err)
	return l
}

func settings(input string) Settings {
	return Settings{
		Input:      input,
		Artifact:   "employees.json",
		OutputPath: filepath.Join(outDir, "employees.json"),
		Columns:    contract.DefaultColumns(),
		Position:   "职工",
	}
}

func readDoc(t *testing.T, fs afero.Fs) contract.Document {
	t.Helper()
	b, err := afero.ReadFile(fs, filepath.Join(outDir, "employees.json"))
	require.NoError(t, err)
	var doc contract.Document
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}

// UT-PIP-01: 端到端，空姓名/空科室行被剔除
func TestRunEndToEndCSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := "姓名,电话,科室\n张三,13812345678,内科\n,13900000000,外科\n李四,13700000000,\n"
	require.NoError(t, afero.WriteFile(fs, "dhb.csv", []byte(src), 0o644))

	rep := &captureReporter{}
	comp := newComponents(t, fs, csvLoader(t), fixedPhone("0712-1234567"))
	comp.Reporter = rep
	res, err := Run(context.Background(), comp, settings("dhb.csv"), diag.Nop())
	require.NoError(t, err)

	want := contract.Document{{Name: "张三", Department: "内科", Position: "职工", OfficePhone: "0712-1234567", MobilePhone: "13812345678"}}
	if diff := cmp.Diff(want, readDoc(t, fs)); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Stats{SourceRows: 4, DataRows: 3, Accepted: 1, Rejected: 2}, res.Stats)

	written, err := afero.ReadFile(fs, filepath.Join(outDir, "employees.json"))
	require.NoError(t, err)
	assert.Equal(t, written, res.Bytes)
	assert.Equal(t, written, rep.got.Written, "reporter must see the exact written bytes")
	assert.Equal(t, 1, rep.got.Accepted)
	assert.Equal(t, "姓名", rep.got.Columns[0].Label)
}

// UT-PIP-02: xlsx 数值手机号与超长文本手机号
func TestRunEndToEndXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"姓名", "电话", "科室"},
		{"张三", 13812345678.0, "内科"},
		{"王五", "138123456789", "外科"},
		{"赵六", nil, "儿科"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "dhb.xlsx", buf.Bytes(), 0o644))
	comp := newComponents(t, fs, lxlsx.New(&lxlsx.Options{}), fixedPhone("0712-7654321"))
	res, err := Run(context.Background(), comp, settings("dhb.xlsx"), diag.Nop())
	require.NoError(t, err)

	doc := readDoc(t, fs)
	require.Len(t, doc, 3)
	assert.Equal(t, "13812345678", doc[0].MobilePhone)
	assert.Equal(t, "13812345678", doc[1].MobilePhone)
	assert.Equal(t, "", doc[2].MobilePhone)
	assert.Equal(t, 0, res.Stats.Rejected)
}

// UT-PIP-03: 顺序保持 + 不变量
func TestRunPreservesOrderAndInvariants(t *testing.T) {
	fs := afero.NewMemMapFs()
	var sb strings.Builder
	sb.WriteString("h1,h2,h3\n")
	names := []string{"甲", "乙", "丙", "丁", "戊", "己"}
	for i, n := range names {
		if i == 2 {
			sb.WriteString(" ,1,科\n") // 空白姓名
		}
		sb.WriteString(n + ",1380000000012345,科室\n")
	}
	require.NoError(t, afero.WriteFile(fs, "in.csv", []byte(sb.String()), 0o644))

	comp := newComponents(t, fs, csvLoader(t), mustSynth(t, 7))
	res, err := Run(context.Background(), comp, settings("in.csv"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Rejected)

	doc := readDoc(t, fs)
	got := make([]string, 0, len(doc))
	for _, r := range doc {
		got = append(got, r.Name)
		assert.LessOrEqual(t, len([]rune(r.MobilePhone)), contract.MaxMobileLen)
		assert.Regexp(t, officeRe, r.OfficePhone)
		assert.NotEmpty(t, strings.TrimSpace(r.Name))
		assert.NotEmpty(t, strings.TrimSpace(r.Department))
	}
	assert.Equal(t, names, got)
}

func mustSynth(t *testing.T, seed int64) *synth.Synthesizer {
	t.Helper()
	s, err := synth.New("0712", synth.Seeded(seed))
	require.NoError(t, err)
	return s
}

// UT-PIP-04: 固定种子输出可复现
func TestRunDeterministicWithSeed(t *testing.T) {
	src := []byte("姓名,电话,科室\n张三,13812345678,内科\n李四,13700000000,外科\n")
	run := func(seed int64) []byte {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "dhb.csv", src, 0o644))
		res, err := Run(context.Background(), newComponents(t, fs, csvLoader(t), mustSynth(t, seed)), settings("dhb.csv"), nil)
		require.NoError(t, err)
		return res.Bytes
	}
	assert.Equal(t, run(42), run(42))
	assert.NotEqual(t, run(42), run(43))
}

// UT-PIP-05: 写失败返回 WriteError，不留目标文件
func TestRunWriteFailure(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "dhb.csv", []byte("a,b,c\n张三,1,内科\n"), 0o644))
	ro := afero.NewReadOnlyFs(base)
	comp := newComponents(t, ro, csvLoader(t), fixedPhone("0712-1234567"))
	rep := &captureReporter{}
	comp.Reporter = rep
	_, err := Run(context.Background(), comp, settings("dhb.csv"), nil)
	require.ErrorIs(t, err, contract.ErrWrite)
	ok, _ := afero.Exists(base, filepath.Join(outDir, "employees.json"))
	assert.False(t, ok)
	assert.Nil(t, rep.got.Written, "reporter must not run after a failed write")
}

// UT-PIP-06: 加载失败（缺失/列数不符）在任何输出前终止
func TestRunLoadFailures(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		_, err := Run(context.Background(), newComponents(t, fs, csvLoader(t), fixedPhone("0712-1234567")), settings("dhb.csv"), nil)
		require.ErrorIs(t, err, contract.ErrLoad)
		ok, _ := afero.DirExists(fs, outDir)
		assert.False(t, ok)
	})
	t.Run("column mismatch", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "dhb.csv", []byte("a,b\n张三,1\n"), 0o644))
		_, err := Run(context.Background(), newComponents(t, fs, csvLoader(t), fixedPhone("0712-1234567")), settings("dhb.csv"), nil)
		require.ErrorIs(t, err, contract.ErrLoad)
		require.ErrorIs(t, err, contract.ErrColumnMismatch)
	})
}

// UT-PIP-07: 汇总失败不影响结果
func TestRunReporterErrorIgnored(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "dhb.csv", []byte("a,b,c\n张三,1,内科\n"), 0o644))
	comp := newComponents(t, fs, csvLoader(t), fixedPhone("0712-1234567"))
	comp.Reporter = &captureReporter{err: errors.New("broken pipe")}
	_, err := Run(context.Background(), comp, settings("dhb.csv"), nil)
	require.NoError(t, err)
}

// UT-PIP-08: 行计数指标
func TestRunMetrics(t *testing.T) {
	m := diag.NewMetrics()
	diag.SetDefault(m)
	defer diag.SetDefault(nil)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "dhb.csv", []byte("a,b,c\n张三,1,内科\n,2,外科\n"), 0o644))
	_, err := Run(context.Background(), newComponents(t, fs, csvLoader(t), fixedPhone("0712-1234567")), settings("dhb.csv"), nil)
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(m.Registry(), "contactdir_op_duration_ms")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "loader, assembler, writer")
	n, err = testutil.GatherAndCount(m.Registry(), "contactdir_rows_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// UT-PIP-09: 组件缺失与取消
func TestRunSanityAndCancel(t *testing.T) {
	_, err := Run(context.Background(), Components{}, settings("x.csv"), nil)
	require.ErrorIs(t, err, contract.ErrInvalidInput)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "dhb.csv", []byte("a,b,c\n张三,1,内科\n"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, newComponents(t, fs, csvLoader(t), fixedPhone("0712-1234567")), settings("dhb.csv"), nil)
	require.ErrorIs(t, err, context.Canceled)
}
