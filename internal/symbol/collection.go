package symbol

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrAmbiguous is returned by FindOne when more than one symbol matches.
var ErrAmbiguous = errors.New("ambiguous symbol")

// Collection is an ordered set of symbols backed by a YAML file mapping names
// to attributes.
type Collection struct {
	Symbols []Symbol
}

// LoadCollection reads a collection file. A missing file is not an error and
// yields an empty collection.
func LoadCollection(path string) (*Collection, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Collection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	symbols, err := FromYAML(b)
	if err != nil {
		return nil, err
	}
	return &Collection{Symbols: symbols}, nil
}

// Save writes the collection back as a name -> attributes mapping, preserving
// the collection order.
func (c *Collection) Save(path string) error {
	var root yaml.Node
	root.Kind = yaml.MappingNode
	for _, s := range c.Symbols {
		var key, val yaml.Node
		key.SetString(s.Name)
		if err := val.Encode(s); err != nil {
			return fmt.Errorf("encode symbol %q: %w", s.Name, err)
		}
		root.Content = append(root.Content, &key, &val)
	}
	b, err := yaml.Marshal(&root)
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	return nil
}

// Add appends symbols, skipping names already present.
func (c *Collection) Add(symbols ...Symbol) {
	names := make(map[string]struct{}, len(c.Symbols))
	for _, s := range c.Symbols {
		names[s.Name] = struct{}{}
	}
	for _, s := range symbols {
		if _, dup := names[s.Name]; dup {
			continue
		}
		names[s.Name] = struct{}{}
		c.Symbols = append(c.Symbols, s)
	}
}

// Find returns all symbols matching what by name or alias.
func (c *Collection) Find(what string) []Symbol {
	var out []Symbol
	for _, s := range c.Symbols {
		if s.Matches(what) {
			out = append(out, s)
		}
	}
	return out
}

// FindOne returns the single symbol matching what and errors when the match
// is missing or ambiguous.
func (c *Collection) FindOne(what string) (Symbol, error) {
	matches := c.Find(what)
	switch len(matches) {
	case 0:
		return Symbol{}, fmt.Errorf("no symbol matching %q", what)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Name)
		}
		return Symbol{}, fmt.Errorf("%w: %q matches %v", ErrAmbiguous, what, names)
	}
}
