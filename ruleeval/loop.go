package ruleeval

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samuellwn/beanimport/config"
	"github.com/samuellwn/beanimport/match"
	"github.com/samuellwn/beanimport/record"
	"github.com/samuellwn/beanimport/tmplenv"
)

// ExpandLoop takes the cross product of every LoopBinding's Values and renders input's
// templated fields (match's file pattern and config.extractor, per spec.md 4.D) once per
// combination, returning one config.InputConfigDetails plus the loop-variable bindings that
// produced it for each point in the product. An input with no Loop entries expands to exactly
// one point with an empty var map. There is no original_source equivalent for this feature (see
// DESIGN.md); the cross-product expansion follows directly from spec.md's description of the
// loop construct.
type LoopPoint struct {
	Vars   map[string]string
	Match  *match.FileMatchSpec
	Config config.InputConfigDetails
}

func ExpandLoop(env *tmplenv.Env, input config.InputConfig) ([]LoopPoint, error) {
	if len(input.Loop) == 0 {
		return []LoopPoint{{Vars: map[string]string{}, Match: input.Match, Config: input.Config}}, nil
	}

	combos := crossProduct(input.Loop)

	points := make([]LoopPoint, 0, len(combos))
	for _, vars := range combos {
		rendered, err := renderInputDetails(env, input.Config, vars)
		if err != nil {
			return nil, err
		}
		renderedMatch, err := renderMatch(env, input.Match, vars)
		if err != nil {
			return nil, err
		}
		points = append(points, LoopPoint{Vars: vars, Match: renderedMatch, Config: rendered})
	}
	return points, nil
}

// renderMatch renders the file-match pattern string(s) of m against vars, mirroring spec.md
// 4.D's "render match ... under the binding".
func renderMatch(env *tmplenv.Env, m *match.FileMatchSpec, vars map[string]string) (*match.FileMatchSpec, error) {
	if m == nil {
		return m, nil
	}

	ctx := make(map[string]any, len(vars))
	for k, v := range vars {
		ctx[k] = v
	}

	render := func(name, tmpl string) (string, error) {
		if tmpl == "" {
			return "", nil
		}
		out, err := env.Render(name, tmpl, ctx)
		if err != nil {
			return "", fmt.Errorf("ruleeval: rendering input match file pattern: %w", err)
		}
		return out, nil
	}

	glob, err := render("match-file-glob", m.Glob)
	if err != nil {
		return nil, err
	}
	regex, err := render("match-file-regex", m.Regex)
	if err != nil {
		return nil, err
	}
	equals, err := render("match-file-equals", m.Equals)
	if err != nil {
		return nil, err
	}

	return &match.FileMatchSpec{Glob: glob, Regex: regex, Equals: equals}, nil
}

// crossProduct enumerates every combination of one value per binding, in the order the
// bindings and their values appear, mirroring nested `for var in values` loops.
func crossProduct(bindings []config.LoopBinding) []map[string]string {
	combos := []map[string]string{{}}

	for _, binding := range bindings {
		var next []map[string]string
		for _, combo := range combos {
			for _, value := range binding.Values {
				point := make(map[string]string, len(combo)+1)
				for k, v := range combo {
					point[k] = v
				}
				point[binding.Var] = value
				next = append(next, point)
			}
		}
		combos = next
	}

	return combos
}

func renderInputDetails(env *tmplenv.Env, details config.InputConfigDetails, vars map[string]string) (config.InputConfigDetails, error) {
	out := details

	ctx := make(map[string]any, len(vars))
	for k, v := range vars {
		ctx[k] = v
	}

	if details.DefaultFile != "" {
		rendered, err := env.Render("default-file", details.DefaultFile, ctx)
		if err != nil {
			return config.InputConfigDetails{}, fmt.Errorf("ruleeval: rendering default_file: %w", err)
		}
		out.DefaultFile = rendered
	}

	if details.Extractor != "" {
		// An extractor that renders to the omit sentinel or to empty text means "unspecified"
		// for this loop point, per spec.md 4.D. No extractor is auto-detected for it: the
		// driver's extractor factory rejects the empty name and the file is skipped.
		rendered, ok, err := env.RenderOptional("input-extractor", details.Extractor, ctx)
		if err != nil {
			return config.InputConfigDetails{}, fmt.Errorf("ruleeval: rendering config.extractor: %w", err)
		}
		if !ok {
			rendered = ""
		}
		out.Extractor = rendered
	}

	return out, nil
}

// EvaluateFilters reports whether rec satisfies every filter in filters (an empty list always
// passes), ANDing field-level predicates the way spec.md's input filters section describes.
// Supported fields are desc, amount, date, and any key present in the record's Extra map;
// comparisons are numeric when both sides parse as numbers, date-typed when the field is date,
// and lexical otherwise.
func EvaluateFilters(filters []config.FilterSpec, rec record.Record) (bool, error) {
	for _, f := range filters {
		ok, err := evaluateFilter(f, rec)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateFilter(f config.FilterSpec, rec record.Record) (bool, error) {
	switch f.Field {
	case "desc":
		return compareStrings(rec.Desc, f.Op, f.Value)
	case "amount":
		return compareAmount(rec, f)
	case "date":
		return compareDate(rec, f)
	default:
		value, ok := rec.Extra[f.Field]
		if !ok {
			return false, nil
		}
		return compareStrings(value, f.Op, f.Value)
	}
}

func compareAmount(rec record.Record, f config.FilterSpec) (bool, error) {
	want, err := decimal.NewFromString(f.Value)
	if err != nil {
		return false, fmt.Errorf("ruleeval: filter on amount: %w", err)
	}
	return compareOrdered(rec.Amount.Cmp(want), f.Op)
}

func compareDate(rec record.Record, f config.FilterSpec) (bool, error) {
	want, err := time.Parse("2006-01-02", f.Value)
	if err != nil {
		return false, fmt.Errorf("ruleeval: filter on date: %w", err)
	}
	return compareOrdered(rec.Date.Compare(want), f.Op)
}

func compareStrings(value, op, want string) (bool, error) {
	if n1, err1 := strconv.ParseFloat(value, 64); err1 == nil {
		if n2, err2 := strconv.ParseFloat(want, 64); err2 == nil {
			cmp := 0
			switch {
			case n1 < n2:
				cmp = -1
			case n1 > n2:
				cmp = 1
			}
			return compareOrdered(cmp, op)
		}
	}

	cmp := 0
	switch {
	case value < want:
		cmp = -1
	case value > want:
		cmp = 1
	}
	return compareOrdered(cmp, op)
}

func compareOrdered(cmp int, op string) (bool, error) {
	switch op {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("ruleeval: unknown filter operator %q", op)
	}
}
