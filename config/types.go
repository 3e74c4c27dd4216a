// Package config holds the YAML-facing schema for an import config document, grounded in
// original_source/beancount_importer_rules/data_types.go's pydantic models. Each tagged union
// from the original (StrMatch, ActionType, ImportRule|IncludeRule) is represented here as a
// Go interface with one concrete type per variant plus a yaml.Node-driven UnmarshalYAML that
// picks the right one, instead of one struct carrying every variant's fields as pointers.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/samuellwn/beanimport/match"
)

// AmountTemplate holds the unrendered template strings for a posting amount.
type AmountTemplate struct {
	Number   string `yaml:"number"`
	Currency string `yaml:"currency"`
}

// PostingTemplate holds the unrendered template strings for one posting.
type PostingTemplate struct {
	Account string          `yaml:"account"`
	Amount  *AmountTemplate `yaml:"amount,omitempty"`
	Cost    string          `yaml:"cost,omitempty"`
	Price   *AmountTemplate `yaml:"price,omitempty"`
}

// MetadataItemTemplate holds the unrendered template strings for one metadata entry.
type MetadataItemTemplate struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// TransactionTemplate holds the unrendered template strings that, once rendered against a
// record, produce a GeneratedTransaction.
type TransactionTemplate struct {
	ID        string                 `yaml:"id,omitempty"`
	Date      string                 `yaml:"date,omitempty"`
	Flag      string                 `yaml:"flag,omitempty"`
	Payee     string                 `yaml:"payee,omitempty"`
	Narration string                 `yaml:"narration,omitempty"`
	Tags      []string               `yaml:"tags,omitempty"`
	Links     []string               `yaml:"links,omitempty"`
	Metadata  []MetadataItemTemplate `yaml:"metadata,omitempty"`
	Postings  []PostingTemplate      `yaml:"postings,omitempty"`
}

// Action is one of ActionAddTxn, ActionDelTxn, or ActionIgnore, mirroring ActionType's
// add_txn/del_txn/ignore tagging in the original schema.
type Action interface {
	actionType() string
}

// ActionAddTxn renders Txn against the current record and generates a transaction into File
// (or the input's default_file if File is empty).
type ActionAddTxn struct {
	File string
	Txn  TransactionTemplate
}

func (ActionAddTxn) actionType() string { return "add_txn" }

// ActionDelTxn marks the transaction whose rendered import id equals ID for deletion.
type ActionDelTxn struct {
	ID string
}

func (ActionDelTxn) actionType() string { return "del_txn" }

// ActionIgnore ends processing of the record: it yields no generated or deleted transaction
// (earlier actions of the same rule included) and is not reported as unprocessed.
type ActionIgnore struct{}

func (ActionIgnore) actionType() string { return "ignore" }

type actionWire struct {
	Type string              `yaml:"type"`
	File string              `yaml:"file,omitempty"`
	Txn  TransactionTemplate `yaml:"txn,omitempty"`
	ID   string              `yaml:"id,omitempty"`
}

// ActionList is a slice of Action values parsed from the tagged `type:` wire format.
type ActionList []Action

func (l *ActionList) UnmarshalYAML(value *yaml.Node) error {
	var raws []actionWire
	if err := value.Decode(&raws); err != nil {
		return err
	}

	out := make(ActionList, 0, len(raws))
	for _, r := range raws {
		switch r.Type {
		case "add_txn":
			out = append(out, ActionAddTxn{File: r.File, Txn: r.Txn})
		case "del_txn":
			out = append(out, ActionDelTxn{ID: r.ID})
		case "ignore":
			out = append(out, ActionIgnore{})
		default:
			return fmt.Errorf("config: unknown action type %q", r.Type)
		}
	}
	*l = out
	return nil
}

// ImportRule is one entry of an imports list: a name, an optional common condition ANDed into
// every one of Match's conditions, the match/vars candidates, and the actions to run for the
// first one that matches.
type ImportRule struct {
	Name       string                   `yaml:"name,omitempty"`
	CommonCond *match.SimpleTxnMatchRule `yaml:"common_cond,omitempty"`
	Match      []match.TxnMatchVars     `yaml:"match,omitempty"`
	Actions    ActionList               `yaml:"actions"`
}

// IncludeRule pulls in the rules of one or more other YAML files, relative to the workdir.
type IncludeRule struct {
	Include StringOrList `yaml:"include"`
}

// StringOrList accepts either a single YAML scalar or a sequence of them.
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var str string
		if err := value.Decode(&str); err != nil {
			return err
		}
		*s = []string{str}
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
	default:
		return fmt.Errorf("config: include must be a string or a list of strings")
	}
	return nil
}

// ImportList is the standalone root shape of an include file: a bare sequence of ImportEntry
// values, mirroring the original schema's RootModel[List[ImportRule | IncludeRule]].
type ImportList []ImportEntry

// ImportEntry is either an ImportRule or an IncludeRule, discriminated by the presence of an
// `include` key, the same way RootModel[List[ImportRule | IncludeRule]] discriminates in the
// original schema.
type ImportEntry struct {
	Rule    *ImportRule
	Include *IncludeRule
}

func (e *ImportEntry) UnmarshalYAML(value *yaml.Node) error {
	var probe struct {
		Include *yaml.Node `yaml:"include"`
	}
	if err := value.Decode(&probe); err != nil {
		return err
	}
	if probe.Include != nil {
		var inc IncludeRule
		if err := value.Decode(&inc); err != nil {
			return err
		}
		e.Include = &inc
		return nil
	}

	var rule ImportRule
	if err := value.Decode(&rule); err != nil {
		return err
	}
	e.Rule = &rule
	return nil
}

// FilterSpec is one field-level predicate in an input's filters list (spec 4.D); there is no
// original_source grounding for this feature (see DESIGN.md), so the operator set mirrors the
// one spec.md spells out directly: ==, !=, <, <=, >, >=.
type FilterSpec struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value string `yaml:"value"`
}

// LoopBinding is one `var: values` pair in an input's loop list; the expander in ruleeval
// takes the cross product of every binding's Values and renders one InputConfigDetails per
// combination.
type LoopBinding struct {
	Var    string   `yaml:"var"`
	Values []string `yaml:"in"`
}

// InputConfigDetails is the part of an InputConfig that can reference loop variables via Go
// templates before it is rendered into a concrete extractor configuration.
type InputConfigDetails struct {
	Extractor         string               `yaml:"extractor"`
	DefaultFile       string               `yaml:"default_file,omitempty"`
	PrependPostings   []PostingTemplate    `yaml:"prepend_postings,omitempty"`
	AppendingPostings []PostingTemplate    `yaml:"appending_postings,omitempty"` // deprecated, see append_postings
	AppendPostings    []PostingTemplate    `yaml:"append_postings,omitempty"`
	DefaultTxn        *TransactionTemplate `yaml:"default_txn,omitempty"`
}

// InputConfig matches a set of input files and describes how to extract and process their
// records, optionally expanded across a set of loop variable bindings first. Match is a file
// match, not a full transaction matcher: an input selects which files it reads, and a rule's own
// common_cond/match is what tests the records those files produce.
type InputConfig struct {
	Match   *match.FileMatchSpec `yaml:"match,omitempty"`
	Loop    []LoopBinding        `yaml:"loop,omitempty"`
	Filters []FilterSpec         `yaml:"filters,omitempty"`
	Config  InputConfigDetails   `yaml:"config"`
}

// OutputConfig is reserved for declarative output file metadata; the driver does not currently
// act on it, matching the original schema's OutputConfig which processor.py also never reads.
type OutputConfig struct {
	File string `yaml:"file"`
}

// ImportDoc is the top-level shape of a beanimport config YAML document.
type ImportDoc struct {
	Context map[string]string `yaml:"context,omitempty"`
	Inputs  []InputConfig     `yaml:"inputs"`
	Imports []ImportEntry     `yaml:"imports,omitempty"`
	Outputs []OutputConfig    `yaml:"outputs,omitempty"`
}
