package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"

	"contactdir/internal/pipeline"
	"contactdir/internal/synth"
	"contactdir/internal/theme"
	"contactdir/pkg/contract"
	"contactdir/pkg/registry"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("office_prefix", func(fl validator.FieldLevel) bool {
		return synth.ValidPrefix(fl.Field().String())
	})
	must("column_field", func(fl validator.FieldLevel) bool {
		switch contract.Field(fl.Field().String()) {
		case contract.FieldName, contract.FieldMobilePhone, contract.FieldDepartment:
			return true
		}
		return false
	})
	must("theme_name", func(fl validator.FieldLevel) bool {
		_, err := theme.Resolve(fl.Field().String())
		return err == nil
	})
	must("font_size", func(fl validator.FieldLevel) bool {
		_, err := theme.ResolveFontSizes(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate 对最小必要边界做静态校验；错误均匹配 contract.ErrConfigInvalid。
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", contract.ErrConfigInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", contract.ErrConfigInvalid, err)
	}
	if strings.TrimSpace(cfg.Output) == "-" {
		return fmt.Errorf("%w: output must be a file path", contract.ErrConfigInvalid)
	}
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("%w: reader %q not registered", contract.ErrConfigInvalid, name)
	}
	if _, err := registry.LoaderFor(effName(cfg.Components.Loader, d.Components.Loader), cfg.Input); err != nil {
		return fmt.Errorf("%w: %w", contract.ErrConfigInvalid, err)
	}
	if name := effName(cfg.Components.Assembler, d.Components.Assembler); registry.Assembler[name] == nil {
		return fmt.Errorf("%w: assembler %q not registered", contract.ErrConfigInvalid, name)
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("%w: writer %q not registered", contract.ErrConfigInvalid, name)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return ns + " is required"
	case "office_prefix":
		return fmt.Sprintf("%s %q must be 4 digits", ns, fe.Value())
	case "column_field":
		return fmt.Sprintf("%s %q must be one of name, mobilePhone, department", ns, fe.Value())
	case "theme_name":
		return fmt.Sprintf("%s %q must be one of %s", ns, fe.Value(), strings.Join(theme.Names(), ", "))
	case "font_size":
		return fmt.Sprintf("%s %q must be one of %s", ns, fe.Value(), strings.Join(theme.FontSizeNames(), ", "))
	case "len", "unique":
		return ns + " must list name, mobilePhone and department exactly once"
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", ns, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", ns, fe.Tag())
}

// Assemble 构造 Components 与 Settings（不含 Reporter，由入口按终端能力决定）。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config, fs afero.Fs) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	ln, err := registry.LoaderFor(effName(cfg.Components.Loader, d.Components.Loader), cfg.Input)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	an := effName(cfg.Components.Assembler, d.Components.Assembler)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	fail := func(comp string, err error) (pipeline.Components, pipeline.Settings, error) {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("%w: %s options: %w", contract.ErrConfigInvalid, comp, err)
	}
	r, err := registry.Reader[rn](fs, cfg.Options.Reader)
	if err != nil {
		return fail("reader", err)
	}
	l, err := registry.Loader[ln](cfg.Options.Loader)
	if err != nil {
		return fail("loader", err)
	}
	asm, err := registry.Assembler[an](cfg.Options.Assembler)
	if err != nil {
		return fail("assembler", err)
	}
	wraw, err := withOutputDir(cfg.Options.Writer, filepath.Dir(cfg.Output))
	if err != nil {
		return fail("writer", err)
	}
	w, err := registry.Writer[wn](fs, wraw)
	if err != nil {
		return fail("writer", err)
	}

	rng := synth.TimeSeeded()
	if cfg.Seed != nil {
		rng = synth.Seeded(*cfg.Seed)
	}
	s, err := synth.New(cfg.OfficePrefix, rng)
	if err != nil {
		return fail("synth", err)
	}

	comp := pipeline.Components{
		Reader:    r,
		Loader:    l,
		Synth:     s,
		Assembler: asm,
		Writer:    w,
	}
	set := pipeline.Settings{
		Input:      cfg.Input,
		Artifact:   contract.ArtifactID(filepath.Base(cfg.Output)),
		OutputPath: cfg.Output,
		Columns:    cloneColumns(cfg.Columns),
		Position:   cfg.Position,
	}
	return comp, set, nil
}

// withOutputDir 在 writer options 中写入 output_dir（覆盖同名键）。
func withOutputDir(raw json.RawMessage, dir string) (json.RawMessage, error) {
	var m map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
	}
	// 缺省或 null 子树均视为空对象
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	b, err := json.Marshal(dir)
	if err != nil {
		return nil, err
	}
	m["output_dir"] = b
	return json.Marshal(m)
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
