// Package directory 对已生成的目录文档做只读查询（按姓名/科室/职位检索与分组统计）。
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"contactdir/pkg/contract"
)

// Field: 检索字段。
type Field string

const (
	ByAll        Field = "all" // 姓名或科室
	ByName       Field = "name"
	ByDepartment Field = "department"
	ByPosition   Field = "position"
)

// ParseField 解析检索字段名；空串视为 all。
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ByAll, nil
	case ByAll, ByName, ByDepartment, ByPosition:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown search field %q", contract.ErrInvalidInput, s)
}

// Summary: 分组名与人数。
type Summary struct {
	Name          string `json:"name"`
	EmployeeCount int    `json:"employeeCount"`
}

// Directory 持有一份只读目录文档。
type Directory struct {
	records contract.Document
}

// New 基于内存中的文档构造（拷贝，不共享底层数组）。
func New(doc contract.Document) *Directory {
	out := make(contract.Document, len(doc))
	copy(out, doc)
	return &Directory{records: out}
}

// Load 从文件系统读取目录文档（严格拒绝未知字段）；失败返回 LoadError。
func Load(ctx context.Context, fs afero.Fs, path string) (*Directory, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, contract.NewLoadError(path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var doc contract.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, contract.NewLoadError(path, err)
	}
	return &Directory{records: doc}, nil
}

// All 返回全部记录（拷贝）。
func (d *Directory) All() contract.Document { return d.filter(func(contract.ContactRecord) bool { return true }) }

// Len 返回记录数。
func (d *Directory) Len() int { return len(d.records) }

// Search 按字段做大小写不敏感的子串匹配；query 为空时返回全部记录。
// ByAll 匹配姓名或科室。结果保持文档顺序。
func (d *Directory) Search(field Field, query string) contract.Document {
	if query == "" {
		return d.All()
	}
	q := strings.ToLower(query)
	has := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }
	switch field {
	case ByName:
		return d.filter(func(r contract.ContactRecord) bool { return has(r.Name) })
	case ByDepartment:
		return d.filter(func(r contract.ContactRecord) bool { return has(r.Department) })
	case ByPosition:
		return d.filter(func(r contract.ContactRecord) bool { return has(r.Position) })
	default:
		return d.filter(func(r contract.ContactRecord) bool { return has(r.Name) || has(r.Department) })
	}
}

// SearchByName 按姓名检索，等价于 Search(ByName, query)。
func (d *Directory) SearchByName(query string) contract.Document {
	return d.Search(ByName, query)
}

// SearchByDepartment 按科室检索，等价于 Search(ByDepartment, query)。
func (d *Directory) SearchByDepartment(query string) contract.Document {
	return d.Search(ByDepartment, query)
}

// SearchByPosition 按职位检索，等价于 Search(ByPosition, query)。
func (d *Directory) SearchByPosition(query string) contract.Document {
	return d.Search(ByPosition, query)
}

// Departments 返回去重后按名称升序的科室及人数。
func (d *Directory) Departments() []Summary {
	return d.group(func(r contract.ContactRecord) string { return r.Department })
}

// Positions 返回去重后按名称升序的职位及人数。
func (d *Directory) Positions() []Summary {
	return d.group(func(r contract.ContactRecord) string { return r.Position })
}

func (d *Directory) filter(keep func(contract.ContactRecord) bool) contract.Document {
	out := contract.Document{}
	for _, r := range d.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (d *Directory) group(key func(contract.ContactRecord) string) []Summary {
	counts := map[string]int{}
	for _, r := range d.records {
		counts[key(r)]++
	}
	out := make([]Summary, 0, len(counts))
	for name, n := range counts {
		out = append(out, Summary{Name: name, EmployeeCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
