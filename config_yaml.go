package pideck

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseYAMLConfig parses a YAML keypad file from a reader. The layout is the
// same as ParseJSONConfig: a list of key records, or a mapping of settings
// with a "keys" list. Classic keypad files write each record as a list of
// single-field mappings:
//
//	- - name: "0"
//	  - on: FF0000
//	  - off: 000000
//	  - command: CTRL C
//
// Scalars are read as written, so unquoted colors such as 000000 keep their
// digits.
func ParseYAMLConfig(r io.Reader) (*Config, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("failed to decode YAML config: empty document")
		}
		return nil, errors.Wrap(err, "failed to decode YAML config")
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	config := DefaultConfig()
	keys := root

	if root.Kind == yaml.MappingNode {
		if err := config.applySettings(yamlSettings(root)); err != nil {
			return nil, err
		}
		keys = yamlLookup(root, "keys")
	}

	if keys != nil && keys.Kind != yaml.SequenceNode {
		return nil, &ConfigError{Field: "keys", Err: errors.New("must be a list of key records")}
	}

	if keys != nil {
		for i, rec := range keys.Content {
			f, err := yamlKeyFields(rec)
			if err != nil {
				return nil, errors.Wrapf(err, "key record %d", i)
			}
			k, err := keyFromFields(f)
			if err != nil {
				return nil, errors.Wrapf(err, "key record %d", i)
			}
			config.Keys = append(config.Keys, k)
		}
	}

	return config.finishRecords()
}

// yamlLookup returns the value of key in a mapping node, or nil.
func yamlLookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func yamlSettings(root *yaml.Node) recordFields {
	f := make(recordFields)
	putYAMLScalars(f, "", root)
	if rpi := yamlLookup(root, "rpi"); rpi != nil && rpi.Kind == yaml.MappingNode {
		putYAMLScalars(f, "rpi.", rpi)
	}
	return f
}

func yamlKeyFields(rec *yaml.Node) (recordFields, error) {
	f := make(recordFields)

	switch rec.Kind {
	case yaml.MappingNode:
		putYAMLScalars(f, "", rec)
	case yaml.SequenceNode:
		for _, part := range rec.Content {
			if part.Kind != yaml.MappingNode {
				return nil, errors.New("list records may only hold mappings")
			}
			putYAMLScalars(f, "", part)
		}
	default:
		return nil, errors.New("must be a mapping")
	}

	return f, nil
}

// putYAMLScalars stores the scalar values of mapping m under prefix+key.
// Nulls and nested collections are skipped.
func putYAMLScalars(f recordFields, prefix string, m *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		v := m.Content[i+1]
		if v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
			continue
		}
		f[prefix+m.Content[i].Value] = v.Value
	}
}
