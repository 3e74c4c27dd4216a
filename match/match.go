// Package match implements the string, file, and transaction match predicates rules are built
// from, grounded in original_source/beancount_importer_rules/processor.go's match_str/
// match_file/match_transaction trio. Each predicate kind is its own type implementing a small
// interface rather than one struct with a field per possible kind, so a caller holding a
// StrMatcher can't accidentally read an irrelevant field the way a blob of optional pydantic
// fields could.
package match

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

// regexCache memoizes compiled patterns so a rule that matches once per input record doesn't
// recompile its regexes on every row; samuellwn-ledger/tools never needed this because its
// match tool only runs matchers once per CLI invocation, but a long-running import pass can
// evaluate a rule's patterns thousands of times.
var regexCache, _ = lru.New[string, *regexp.Regexp](256)

func compileCached(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Add(pattern, re)
	return re, nil
}

// matchAnchored reports whether re has a match starting at index 0 of value, i.e. Python's
// re.match semantics rather than Go's unanchored re.MatchString (re.search). The match need not
// run to the end of value.
func matchAnchored(re *regexp.Regexp, value string) bool {
	loc := re.FindStringIndex(value)
	return loc != nil && loc[0] == 0
}

// StrMatcher tests a single string field of a record against one match pattern.
type StrMatcher interface {
	MatchStr(value string) bool
}

// RegexMatch matches if the pattern matches starting at the beginning of value (Python's
// re.match semantics; the match need not consume the whole string).
type RegexMatch struct{ Pattern string }

func (m RegexMatch) MatchStr(value string) bool {
	re, err := compileCached(m.Pattern)
	if err != nil {
		return false
	}
	return matchAnchored(re, value)
}

// ExactMatch matches on exact string equality.
type ExactMatch string

func (m ExactMatch) MatchStr(value string) bool { return string(m) == value }

// OneOfMatch matches if value equals (or, with Regex set, matches) any of a fixed list of
// patterns, grounded on spec.md 4.A's one_of(values, regex?, ignore_case?) variant. IgnoreCase
// folds both the candidate value and every pattern to lowercase before comparing, including the
// regex source itself when Regex is also set.
type OneOfMatch struct {
	Values     []string
	Regex      bool
	IgnoreCase bool
}

func (m OneOfMatch) MatchStr(value string) bool {
	v := value
	if m.IgnoreCase {
		v = strings.ToLower(v)
	}
	for _, raw := range m.Values {
		pat := raw
		if m.IgnoreCase {
			pat = strings.ToLower(pat)
		}
		if m.Regex {
			re, err := compileCached(pat)
			if err != nil {
				continue
			}
			if matchAnchored(re, v) {
				return true
			}
			continue
		}
		if pat == v {
			return true
		}
	}
	return false
}

// PrefixMatch matches if value starts with the pattern.
type PrefixMatch string

func (m PrefixMatch) MatchStr(value string) bool { return strings.HasPrefix(value, string(m)) }

// SuffixMatch matches if value ends with the pattern.
type SuffixMatch string

func (m SuffixMatch) MatchStr(value string) bool { return strings.HasSuffix(value, string(m)) }

// ContainsMatch matches if the pattern occurs anywhere in value as a plain substring.
type ContainsMatch string

func (m ContainsMatch) MatchStr(value string) bool { return strings.Contains(value, string(m)) }

// defaultDateFormat is used to parse both the matched value and the pattern's bound when a
// DateBoundSpec omits Format, matching the record date fields' canonical "2006-01-02" rendering
// elsewhere in this module (tmplenv context construction, match/txn.go's Date field).
const defaultDateFormat = "2006-01-02"

// DateBoundSpec is the wire format for the five date_* match variants: Value is the bound to
// compare the field's parsed date against, Format is the layout (Go reference-time form) used
// to parse both Value and the matched field; it defaults to "2006-01-02" when empty.
type DateBoundSpec struct {
	Value  string `yaml:"value"`
	Format string `yaml:"format,omitempty"`
}

func (s DateBoundSpec) layout() string {
	if s.Format != "" {
		return s.Format
	}
	return defaultDateFormat
}

func (s DateBoundSpec) parseBound() (time.Time, error) {
	return time.Parse(s.layout(), s.Value)
}

// DateBeforeMatch matches if value, parsed with Format, is strictly earlier than the bound.
type DateBeforeMatch struct{ Spec DateBoundSpec }

func (m DateBeforeMatch) MatchStr(value string) bool {
	v, err := time.Parse(m.Spec.layout(), value)
	if err != nil {
		return false
	}
	bound, err := m.Spec.parseBound()
	if err != nil {
		return false
	}
	return v.Before(bound)
}

// DateAfterMatch matches if value, parsed with Format, is strictly later than the bound.
type DateAfterMatch struct{ Spec DateBoundSpec }

func (m DateAfterMatch) MatchStr(value string) bool {
	v, err := time.Parse(m.Spec.layout(), value)
	if err != nil {
		return false
	}
	bound, err := m.Spec.parseBound()
	if err != nil {
		return false
	}
	return v.After(bound)
}

// DateSameDayMatch matches if value and the bound, both parsed with Format, fall on the same
// day-of-month, mirroring spec.md 4.A's "compare the respective component after parsing both
// sides" wording literally (not a full calendar-date equality).
type DateSameDayMatch struct{ Spec DateBoundSpec }

func (m DateSameDayMatch) MatchStr(value string) bool {
	v, bound, ok := m.Spec.parseBoth(value)
	return ok && v.Day() == bound.Day()
}

// DateSameMonthMatch matches if value and the bound share the same calendar month.
type DateSameMonthMatch struct{ Spec DateBoundSpec }

func (m DateSameMonthMatch) MatchStr(value string) bool {
	v, bound, ok := m.Spec.parseBoth(value)
	return ok && v.Month() == bound.Month()
}

// DateSameYearMatch matches if value and the bound share the same calendar year.
type DateSameYearMatch struct{ Spec DateBoundSpec }

func (m DateSameYearMatch) MatchStr(value string) bool {
	v, bound, ok := m.Spec.parseBoth(value)
	return ok && v.Year() == bound.Year()
}

func (s DateBoundSpec) parseBoth(value string) (v, bound time.Time, ok bool) {
	v, err := time.Parse(s.layout(), value)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	bound, err = s.parseBound()
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return v, bound, true
}

// OneOfSpec is the wire format for the one_of variant: Values to compare against, Regex
// treats each value as a pattern instead of a literal, IgnoreCase folds both sides to
// lowercase before comparing (and before compiling, when Regex is also set).
type OneOfSpec struct {
	Values     []string `yaml:"values"`
	Regex      bool     `yaml:"regex,omitempty"`
	IgnoreCase bool     `yaml:"ignore_case,omitempty"`
}

// StrMatchSpec is the wire format a StrMatcher is parsed from: exactly one field may be set,
// mirroring the single-discriminant-key shape import rule YAML files use (e.g. `regex: "..."`
// or `one_of: {values: [...]}`).
type StrMatchSpec struct {
	Regex         string         `yaml:"regex,omitempty"`
	Exact         string         `yaml:"exact,omitempty"`
	OneOf         *OneOfSpec     `yaml:"one_of,omitempty"`
	Prefix        string         `yaml:"prefix,omitempty"`
	Suffix        string         `yaml:"suffix,omitempty"`
	Contains      string         `yaml:"contains,omitempty"`
	DateBefore    *DateBoundSpec `yaml:"date_before,omitempty"`
	DateAfter     *DateBoundSpec `yaml:"date_after,omitempty"`
	DateSameDay   *DateBoundSpec `yaml:"date_same_day,omitempty"`
	DateSameMonth *DateBoundSpec `yaml:"date_same_month,omitempty"`
	DateSameYear  *DateBoundSpec `yaml:"date_same_year,omitempty"`
}

// UnmarshalYAML accepts either a bare scalar, interpreted as a regex pattern (spec.md 4.A: "a
// bare string is interpreted as a regex pattern"), or a mapping selecting one of the tagged
// variants above.
func (s *StrMatchSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var pattern string
		if err := value.Decode(&pattern); err != nil {
			return err
		}
		*s = StrMatchSpec{Regex: pattern}
		return nil
	}
	type plain StrMatchSpec
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = StrMatchSpec(p)
	return nil
}

// ErrEmptyMatch is returned by Build when a StrMatchSpec has no recognized field set.
var ErrEmptyMatch = fmt.Errorf("match pattern has no recognized field set")

// Build resolves the wire-format spec into a concrete StrMatcher.
func (s StrMatchSpec) Build() (StrMatcher, error) {
	switch {
	case s.Regex != "":
		if _, err := compileCached(s.Regex); err != nil {
			return nil, err
		}
		return RegexMatch{s.Regex}, nil
	case s.Exact != "":
		return ExactMatch(s.Exact), nil
	case s.OneOf != nil:
		if s.OneOf.Regex {
			for _, v := range s.OneOf.Values {
				pat := v
				if s.OneOf.IgnoreCase {
					pat = strings.ToLower(pat)
				}
				if _, err := compileCached(pat); err != nil {
					return nil, err
				}
			}
		}
		return OneOfMatch{Values: s.OneOf.Values, Regex: s.OneOf.Regex, IgnoreCase: s.OneOf.IgnoreCase}, nil
	case s.Prefix != "":
		return PrefixMatch(s.Prefix), nil
	case s.Suffix != "":
		return SuffixMatch(s.Suffix), nil
	case s.Contains != "":
		return ContainsMatch(s.Contains), nil
	case s.DateBefore != nil:
		return DateBeforeMatch{*s.DateBefore}, nil
	case s.DateAfter != nil:
		return DateAfterMatch{*s.DateAfter}, nil
	case s.DateSameDay != nil:
		return DateSameDayMatch{*s.DateSameDay}, nil
	case s.DateSameMonth != nil:
		return DateSameMonthMatch{*s.DateSameMonth}, nil
	case s.DateSameYear != nil:
		return DateSameYearMatch{*s.DateSameYear}, nil
	default:
		return nil, ErrEmptyMatch
	}
}

// MatchStrPtr evaluates an optional StrMatchSpec against a value, returning true (the field is
// not considered) when spec is nil, matching match_str's "an absent pattern always matches"
// rule used throughout match_transaction.
func MatchStrPtr(spec *StrMatchSpec, value string) (bool, error) {
	if spec == nil {
		return true, nil
	}
	m, err := spec.Build()
	if err != nil {
		return false, err
	}
	return m.MatchStr(value), nil
}

// FileMatcher tests a workdir-relative file path against one match pattern.
type FileMatcher interface {
	MatchFile(path string) (bool, error)
}

// GlobMatch matches using filepath.Match glob syntax.
type GlobMatch string

func (m GlobMatch) MatchFile(path string) (bool, error) { return filepath.Match(string(m), path) }

// RegexFileMatch matches a path against a regex anchored at the start of the path.
type RegexFileMatch struct{ Pattern string }

func (m RegexFileMatch) MatchFile(path string) (bool, error) {
	re, err := compileCached(m.Pattern)
	if err != nil {
		return false, err
	}
	return matchAnchored(re, path), nil
}

// EqualsFileMatch matches a path by exact string equality.
type EqualsFileMatch string

func (m EqualsFileMatch) MatchFile(path string) (bool, error) { return string(m) == path, nil }

// FileMatchSpec is the wire format a FileMatcher is parsed from.
type FileMatchSpec struct {
	Glob   string `yaml:"glob,omitempty"`
	Regex  string `yaml:"regex,omitempty"`
	Equals string `yaml:"equals,omitempty"`
}

// Build resolves the wire-format spec into a concrete FileMatcher.
func (s FileMatchSpec) Build() (FileMatcher, error) {
	switch {
	case s.Glob != "":
		return GlobMatch(s.Glob), nil
	case s.Regex != "":
		if _, err := compileCached(s.Regex); err != nil {
			return nil, err
		}
		return RegexFileMatch{s.Regex}, nil
	case s.Equals != "":
		return EqualsFileMatch(s.Equals), nil
	default:
		return nil, ErrEmptyMatch
	}
}

// UnmarshalYAML accepts either a bare scalar, interpreted as a glob pattern over path
// components (spec.md 4.A: "file match: bare string = glob over path components"), or a
// mapping selecting one of glob/regex/equals explicitly.
func (s *FileMatchSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var pattern string
		if err := value.Decode(&pattern); err != nil {
			return err
		}
		*s = FileMatchSpec{Glob: pattern}
		return nil
	}
	type plain FileMatchSpec
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = FileMatchSpec(p)
	return nil
}
