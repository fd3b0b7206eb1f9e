package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"contactdir/internal/directory"
	"contactdir/internal/report"
)

// 目录查询子命令：对已生成的文档做只读检索，document 缺省为配置中的 output。

func (a *app) newDepartmentsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "departments [document]",
		Short: "列出科室（去重、按名称排序）及人数",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := a.openDirectory(cmd.Context(), args)
			if !ok {
				return nil
			}
			return a.printSummaries(d.Departments(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

func (a *app) newPositionsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "positions [document]",
		Short: "列出职位（去重、按名称排序）及人数",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := a.openDirectory(cmd.Context(), args)
			if !ok {
				return nil
			}
			return a.printSummaries(d.Positions(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

func (a *app) newSearchCommand() *cobra.Command {
	var (
		by     string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query> [document]",
		Short: "按姓名/科室/职位做大小写不敏感的子串检索；空查询返回全部",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := directory.ParseField(by)
			if err != nil {
				return a.fail(exitConfig, "参数错误", err)
			}
			d, ok := a.openDirectory(cmd.Context(), args[1:])
			if !ok {
				return nil
			}
			found := d.Search(field, args[0])
			if asJSON {
				return a.printJSON(found)
			}
			for _, rec := range found {
				fprintf(a.stdout, "%s\n", report.FormatRecord(rec))
			}
			fprintf(a.stdout, "共 %d 条\n", len(found))
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", string(directory.ByAll), "检索字段 all|name|department|position")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

// openDirectory 解析文档路径并加载；失败时已设置退出码。
func (a *app) openDirectory(ctx context.Context, args []string) (*directory.Directory, bool) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		cfg, err := a.loadConfig()
		if err != nil {
			_ = a.fail(exitConfig, "配置校验失败", err)
			return nil, false
		}
		path = cfg.Output
	}
	d, err := directory.Load(ctx, afero.NewOsFs(), path)
	if err != nil {
		_ = a.fail(exitRuntime, "读取目录文档失败", err)
		return nil, false
	}
	return d, true
}

func (a *app) printSummaries(items []directory.Summary, asJSON bool) error {
	if asJSON {
		return a.printJSON(items)
	}
	for _, s := range items {
		fprintf(a.stdout, "%s\t%d\n", s.Name, s.EmployeeCount)
	}
	return nil
}

func (a *app) printJSON(v any) error {
	return writeJSON(a.stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
