// Package tmplenv adapts Go's text/template, layered with sprig's function set, into the
// sandboxed rendering environment the rule evaluator needs, grounded on
// original_source/beancount_importer_rules/templates.py's make_environment (a
// jinja2.sandbox.SandboxedEnvironment with one extra filter, as_posix_path) and on the spec's
// run-unique "omit sentinel" convention for letting a template express "this field is absent".
package tmplenv

import (
	"bytes"
	"go/token"
	"path"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/uuid"
)

// Env renders Go templates with a shared function set and a run-unique omit sentinel. text/
// template has no equivalent to Jinja2's sandboxed execution model (no arbitrary attribute
// access, no imports), so it is the sandbox here by construction rather than by an explicit
// wrapper type the way SandboxedEnvironment is in the original implementation.
type Env struct {
	omitSentinel string
	funcs        template.FuncMap
}

// New creates an Env with a fresh omit sentinel unique to this run, so a rendered template
// that happens to contain the literal text of some *other* run's sentinel is never mistaken
// for an omitted field.
func New() *Env {
	sentinel := "\x00omit:" + uuid.NewString() + "\x00"

	e := &Env{omitSentinel: sentinel}
	funcs := sprig.TxtFuncMap()
	funcs["as_posix_path"] = asPosixPath
	funcs["omit"] = func() string { return sentinel }
	funcs["default"] = e.defaultFilter
	e.funcs = funcs
	return e
}

// OmitSentinel returns the token a rendered template emits to mean "this field is absent".
// Callers render into a string, then look for this token to decide whether to null out the
// field rather than use the rendered text.
func (e *Env) OmitSentinel() string {
	return e.omitSentinel
}

// IsOmitted reports whether a rendered string is exactly the omit sentinel.
func (e *Env) IsOmitted(rendered string) bool {
	return rendered == e.omitSentinel
}

// Parse compiles a template string with this Env's function set installed.
func (e *Env) Parse(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(e.funcs).Option("missingkey=zero").Parse(text)
}

// Render parses and executes a template string against data in one step, returning the
// rendered text. When data is a map[string]any, each key that is a Go identifier can also be
// used by bare name (`{{ desc }}` as well as `{{ .desc }}`); a bare name that is not a key of
// data fails to parse. A result equal to the omit sentinel is returned as-is (IsOmitted and
// RenderOptional detect it), not reported as an error.
func (e *Env) Render(name, text string, data any) (string, error) {
	tmpl := template.New(name).Funcs(e.funcs).Option("missingkey=zero")
	if m, ok := data.(map[string]any); ok {
		vars := make(template.FuncMap, len(m))
		for k, v := range m {
			if token.IsIdentifier(k) {
				v := v
				vars[k] = func() any { return v }
			}
		}
		tmpl = tmpl.Funcs(vars)
	}
	tmpl, err := tmpl.Parse(text)
	if err != nil {
		return "", err
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderOptional is Render, but returns ok=false (and an empty string) if the rendered value
// is the omit sentinel, i.e. the template decided this field is absent via `{{ omit }}` or a
// `default` fallback that bottomed out at omit.
func (e *Env) RenderOptional(name, text string, data any) (value string, ok bool, err error) {
	rendered, err := e.Render(name, text, data)
	if err != nil {
		return "", false, err
	}
	if e.IsOmitted(rendered) {
		return "", false, nil
	}
	return rendered, true, nil
}

func asPosixPath(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}

// defaultFilter mirrors Jinja2's `default` filter, with one addition: a value equal to this
// Env's omit sentinel is treated the same as an unset/empty value, so `{{ foo | default "bar" }}`
// falls through to bar when foo itself rendered to "omit" rather than just when foo is the Go
// zero value. Go's template pipe appends the piped value as the LAST call argument (`x | f a b`
// calls f(a, b, x)), so the piped value arrives last here, not first as it would in a direct call.
func (e *Env) defaultFilter(args ...any) any {
	if len(args) == 0 {
		return ""
	}
	value := args[len(args)-1]
	rest := args[:len(args)-1]

	var def any = ""
	if len(rest) > 0 {
		def = rest[0]
	}
	boolify := false
	if len(rest) > 1 {
		if b, ok := rest[1].(bool); ok {
			boolify = b
		}
	}

	isEmpty := func(v any) bool {
		switch t := v.(type) {
		case nil:
			return true
		case string:
			return t == "" || t == e.omitSentinel
		case bool:
			return boolify && !t
		}
		return false
	}

	if isEmpty(value) {
		return def
	}
	return value
}
