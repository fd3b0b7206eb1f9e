// Package theme 提供按名称解析的配色与字号集合（纯数据，无全局可变状态）。
package theme

import (
	"fmt"
	"sort"
	"strings"

	"contactdir/pkg/contract"
)

const (
	DefaultTheme    = "light"
	DefaultFontSize = "medium"
)

// Theme: 一套配色（十六进制 RGB）。
type Theme struct {
	Name           string
	Label          string
	Primary        string
	PrimaryDark    string
	Accent         string
	Background     string
	CardBackground string
	TextPrimary    string
	TextSecondary  string
	Divider        string
}

// FontSizes: 一套字号（单位 sp）。
type FontSizes struct {
	Name     string
	Header   int
	Title    int
	Subtitle int
	Body     int
	Caption  int
}

var themes = map[string]Theme{
	"light": {
		Name: "light", Label: "浅色主题",
		Primary: "#2196F3", PrimaryDark: "#1976D2", Accent: "#FF5722",
		Background: "#FFFFFF", CardBackground: "#F5F5F5",
		TextPrimary: "#212121", TextSecondary: "#757575", Divider: "#BDBDBD",
	},
	"dark": {
		Name: "dark", Label: "深色主题",
		Primary: "#2196F3", PrimaryDark: "#1976D2", Accent: "#FF5722",
		Background: "#121212", CardBackground: "#1E1E1E",
		TextPrimary: "#FFFFFF", TextSecondary: "#B0B0B0", Divider: "#424242",
	},
}

var fontSizes = map[string]FontSizes{
	"small":       {Name: "small", Header: 18, Title: 16, Subtitle: 14, Body: 12, Caption: 10},
	"medium":      {Name: "medium", Header: 20, Title: 18, Subtitle: 16, Body: 14, Caption: 12},
	"large":       {Name: "large", Header: 22, Title: 20, Subtitle: 18, Body: 16, Caption: 14},
	"extra_large": {Name: "extra_large", Header: 24, Title: 22, Subtitle: 20, Body: 18, Caption: 16},
}

// Resolve 按名称返回配色；空名返回默认 light，未知名返回 ErrInvalidInput。
func Resolve(name string) (Theme, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		n = DefaultTheme
	}
	t, ok := themes[n]
	if !ok {
		return Theme{}, fmt.Errorf("%w: unknown theme %q (want one of %s)", contract.ErrInvalidInput, name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// ResolveFontSizes 按名称返回字号集合；空名返回默认 medium，未知名返回 ErrInvalidInput。
func ResolveFontSizes(name string) (FontSizes, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		n = DefaultFontSize
	}
	f, ok := fontSizes[n]
	if !ok {
		return FontSizes{}, fmt.Errorf("%w: unknown font size %q (want one of %s)", contract.ErrInvalidInput, name, strings.Join(FontSizeNames(), ", "))
	}
	return f, nil
}

// Names 返回全部主题名（升序）。
func Names() []string { return sortedKeys(themes) }

// FontSizeNames 返回全部字号集合名（升序）。
func FontSizeNames() []string { return sortedKeys(fontSizes) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
