package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"contactdir/pkg/contract"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	if err := strictUnmarshal(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1}`), &o); err != nil || o.A != 1 {
		t.Fatalf("合法 JSON 解析失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o); err == nil {
		t.Fatalf("未知字段应报错")
	}
	var z opt
	if err := strictUnmarshal(json.RawMessage(" null "), &z); err != nil || z.A != 0 {
		t.Fatalf("null 应保持零值: %v", err)
	}
	if _, err := Writer["fs"](afero.NewMemMapFs(), json.RawMessage(`null`)); err == nil {
		t.Fatalf("writer 缺少 output_dir 应报错")
	}
	if _, err := Loader["csv"](json.RawMessage(`null`)); err != nil {
		t.Fatalf("loader null 选项应使用默认值: %v", err)
	}
}

// TestFactories 遍历注册表入口。
func TestFactories(t *testing.T) {
	fs := afero.NewMemMapFs()
	t.Run("reader", func(t *testing.T) {
		if _, err := Reader["fs"](fs, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("reader: %v", err)
		}
		if _, err := Reader["fs"](fs, json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("reader 未对未知字段报错")
		}
	})
	t.Run("loader", func(t *testing.T) {
		for _, name := range []string{"csv", "xlsx"} {
			if _, err := Loader[name](json.RawMessage(`{}`)); err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if _, err := Loader[name](json.RawMessage(`{"x":1}`)); err == nil {
				t.Fatalf("%s 未对未知字段报错", name)
			}
		}
		if _, err := Loader["csv"](json.RawMessage(`{"comma":";;"}`)); err == nil {
			t.Fatalf("csv 未对非法分隔符报错")
		}
	})
	t.Run("assembler", func(t *testing.T) {
		if _, err := Assembler["jsonarray"](json.RawMessage(`{}`)); err != nil {
			t.Fatalf("assembler: %v", err)
		}
		if _, err := Assembler["jsonarray"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("assembler 未对未知字段报错")
		}
	})
	t.Run("writer", func(t *testing.T) {
		if _, err := Writer["fs"](fs, json.RawMessage(`{"output_dir":"out"}`)); err != nil {
			t.Fatalf("writer: %v", err)
		}
		if _, err := Writer["fs"](fs, json.RawMessage(`{"output_dir":"out","x":1}`)); err == nil {
			t.Fatalf("writer 未对未知字段报错")
		}
		if _, err := Writer["fs"](fs, json.RawMessage(`{}`)); err == nil {
			t.Fatalf("writer 缺少 output_dir 应报错")
		}
	})
}

// TestLoaderFor 验证按扩展名自动选择。
func TestLoaderFor(t *testing.T) {
	cases := []struct {
		name, input, want string
	}{
		{"auto", "dhb.xlsx", "xlsx"},
		{"", "DHB.XLSM", "xlsx"},
		{"auto", "data/电话本.csv", "csv"},
		{"auto", "export.txt", "csv"},
		{"auto", "-", "csv"},
		{"csv", "dhb.xlsx", "csv"},
		{"xlsx", "-", "xlsx"},
	}
	for _, tt := range cases {
		got, err := LoaderFor(tt.name, tt.input)
		if err != nil || got != tt.want {
			t.Fatalf("LoaderFor(%q,%q) = %q,%v; want %q", tt.name, tt.input, got, err, tt.want)
		}
	}
	if _, err := LoaderFor("auto", "dhb.xls"); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("未知扩展名应报错: %v", err)
	}
	if _, err := LoaderFor("parquet", "dhb.xlsx"); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("未知 loader 应报错: %v", err)
	}
}
