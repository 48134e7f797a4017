package symbol

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ToYAML renders the symbol as a one-entry mapping of name to attributes,
// the format collection files are made of.
func (s Symbol) ToYAML() (string, error) {
	doc := map[string]Symbol{s.Name: s}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal symbol %q: %w", s.Name, err)
	}
	return string(b), nil
}

// FromYAML parses a mapping of names to attributes into symbols, applying the
// usual defaults. Order follows the document.
func FromYAML(b []byte) ([]Symbol, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("parse symbols: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse symbols: expected a mapping at the top level")
	}
	out := make([]Symbol, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		var s Symbol
		if err := m.Content[i+1].Decode(&s); err != nil {
			return nil, fmt.Errorf("parse symbol %q: %w", m.Content[i].Value, err)
		}
		s.Name = m.Content[i].Value
		out = append(out, New(s))
	}
	return out, nil
}
