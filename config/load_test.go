package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadParsesTopLevelDoc(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/config.yaml", []byte(`
context:
  bank: mercury
inputs:
  - match:
      extractor: mercury
    config:
      extractor: mercury
imports:
  - name: aws
    match:
      - cond:
          desc: "^Amazon"
    actions:
      - type: add_txn
        txn:
          narration: "Amazon Web Services"
`), 0o644))

	doc, err := Load(fs, "/work/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "mercury", doc.Context["bank"])
	require.Len(t, doc.Inputs, 1)
	require.Len(t, doc.Imports, 1)
	require.NotNil(t, doc.Imports[0].Rule)
	assert.Equal(t, "aws", doc.Imports[0].Rule.Name)
}

func TestResolveImportsFlattensIncludes(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/common.yaml", []byte(`
- name: delete-dupes
  actions:
    - type: del_txn
`), 0o644))

	entries := []ImportEntry{
		{Rule: &ImportRule{Name: "first"}},
		{Include: &IncludeRule{Include: StringOrList{"common.yaml"}}},
	}

	rules, err := ResolveImports(fs, "/work", entries)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "first", rules[0].Name)
	assert.Equal(t, "delete-dupes", rules[1].Name)
}

func TestActionListUnmarshalsTaggedVariants(t *testing.T) {
	var list ActionList
	require.NoError(t, yaml.Unmarshal([]byte(`
- type: add_txn
  file: output.bean
  txn:
    narration: "x"
- type: del_txn
  id: "some-id"
- type: ignore
`), &list))

	require.Len(t, list, 3)
	add, ok := list[0].(ActionAddTxn)
	require.True(t, ok)
	assert.Equal(t, "output.bean", add.File)
	del, ok := list[1].(ActionDelTxn)
	require.True(t, ok)
	assert.Equal(t, "some-id", del.ID)
	_, ok = list[2].(ActionIgnore)
	assert.True(t, ok)
}
