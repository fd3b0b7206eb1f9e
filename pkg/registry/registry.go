package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"contactdir/pkg/contract"
	jsonarray "contactdir/plugins/assembler/jsonarray"
	lcsv "contactdir/plugins/loader/csv"
	lxlsx "contactdir/plugins/loader/xlsx"
	rfs "contactdir/plugins/reader/filesystem"
	wfs "contactdir/plugins/writer/filesystem"
)

// AutoLoader: 按输入扩展名选择 Loader 的保留名。
const AutoLoader = "auto"

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		// 缺省或 null：保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收文件系统与原样 JSON Options。
type NewReader func(fs afero.Fs, raw json.RawMessage) (contract.Reader, error)

// NewLoader 工厂签名：接收原样 JSON Options。
type NewLoader func(raw json.RawMessage) (contract.TableLoader, error)

// NewAssembler 工厂签名：接收原样 JSON Options。
type NewAssembler func(raw json.RawMessage) (contract.Assembler, error)

// NewWriter 工厂签名：接收文件系统与原样 JSON Options。
type NewWriter func(fs afero.Fs, raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(fs afero.Fs, raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(fs, &opts), nil
	},
}

// Loader 工厂注册表。
var Loader = map[string]NewLoader{
	// csv: 分隔文本表格
	"csv": func(raw json.RawMessage) (contract.TableLoader, error) {
		var opts lcsv.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return lcsv.New(&opts)
	},
	// xlsx: Excel 工作簿
	"xlsx": func(raw json.RawMessage) (contract.TableLoader, error) {
		var opts lxlsx.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return lxlsx.New(&opts), nil
	},
}

// Assembler 工厂注册表。
var Assembler = map[string]NewAssembler{
	// jsonarray: 固定键序、2 空格缩进的 JSON 数组
	"jsonarray": func(raw json.RawMessage) (contract.Assembler, error) { return jsonarray.New(raw) },
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（同目录临时文件 + rename 原子替换）
	"fs": func(fs afero.Fs, raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(fs, &opts)
	},
}

// LoaderFor 解析 Loader 名称：name 为 auto（或空）时按 input 扩展名选择。
// .xlsx/.xlsm → xlsx；.csv/.txt 与 STDIN（"-"）→ csv；其余返回 ErrInvalidInput。
func LoaderFor(name, input string) (string, error) {
	name = strings.TrimSpace(name)
	if name != "" && name != AutoLoader {
		if _, ok := Loader[name]; !ok {
			return "", fmt.Errorf("%w: unknown loader %q", contract.ErrInvalidInput, name)
		}
		return name, nil
	}
	if strings.TrimSpace(input) == "-" {
		return "csv", nil
	}
	switch strings.ToLower(filepath.Ext(input)) {
	case ".xlsx", ".xlsm":
		return "xlsx", nil
	case ".csv", ".txt":
		return "csv", nil
	}
	return "", fmt.Errorf("%w: cannot infer loader for %q", contract.ErrInvalidInput, input)
}
