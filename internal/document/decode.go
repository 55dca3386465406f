package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads an artifact from path. Files ending in .yml or .yaml are parsed as
// YAML, everything else as JSON.
func Load(path string) (any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user input by design
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var v any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		v, err = ParseYAML(data)
	default:
		v, err = ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}

// ParseYAML decodes the first YAML document in data. An empty input yields nil.
func ParseYAML(data []byte) (any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 {
		return nil, nil
	}
	return FromYAMLNode(&node)
}

// FromYAMLNode converts a parsed YAML node tree to document values.
func FromYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return FromYAMLNode(node.Content[0])

	case yaml.MappingNode:
		return mappingFromYAML(node)

	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			val, err := FromYAMLNode(child)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil

	case yaml.AliasNode:
		return FromYAMLNode(node.Alias)

	case yaml.ScalarNode:
		return scalarFromYAML(node)

	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

// mappingFromYAML converts a mapping node. Merge keys (<<) are resolved:
// merged keys come first and explicit keys override them.
func mappingFromYAML(node *yaml.Node) (*Map, error) {
	m := NewMap()
	type pair struct {
		key string
		val *yaml.Node
	}
	var explicit []pair

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if keyNode.Kind == yaml.AliasNode {
			keyNode = keyNode.Alias
		}
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
		}
		if keyNode.ShortTag() == "!!merge" {
			if err := mergeInto(m, valNode); err != nil {
				return nil, err
			}
			continue
		}
		explicit = append(explicit, pair{key: keyNode.Value, val: valNode})
	}

	for _, p := range explicit {
		val, err := FromYAMLNode(p.val)
		if err != nil {
			return nil, err
		}
		m.Set(p.key, val)
	}
	return m, nil
}

// mergeInto applies the value of a merge key: a mapping, or a sequence of
// mappings where earlier entries take precedence over later ones.
func mergeInto(m *Map, node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}

	sources := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		sources = make([]*yaml.Node, len(node.Content))
		copy(sources, node.Content)
	}

	for i := len(sources) - 1; i >= 0; i-- {
		v, err := FromYAMLNode(sources[i])
		if err != nil {
			return err
		}
		src, ok := v.(*Map)
		if !ok {
			return fmt.Errorf("line %d: merge key value must be a mapping or a sequence of mappings", sources[i].Line)
		}
		src.Iterate(func(key string, value any) {
			m.Set(key, value)
		})
	}
	return nil
}

func scalarFromYAML(node *yaml.Node) (any, error) {
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			return i, nil
		}
		// Out of int64 range: keep the magnitude as a float.
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return node.Value, nil
	}
}

// ParseJSON decodes a single JSON value from data keeping object key order.
func ParseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key at offset %d", dec.InputOffset())
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			list := []any{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q at offset %d", t, dec.InputOffset())
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		// string, bool or nil
		return t, nil
	}
}
