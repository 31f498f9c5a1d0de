package i18n

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTableFile reads a user-supplied translation-override file: a YAML
// map of language tag to a sparse Strings object. Fields left out of a
// language's entry fall back to the Builtin table at Resolve time, so
// operators only need to supply the strings they want to change.
func LoadTableFile(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read i18n overrides: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable unmarshals YAML bytes of the same shape LoadTableFile
// reads from disk. Split out so callers that already hold the bytes
// (an embedded config section, a test fixture) don't need a temp file.
func ParseTable(raw []byte) (Table, error) {
	var table Table
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse i18n overrides: %w", err)
	}
	return table, nil
}
