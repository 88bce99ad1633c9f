package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// OrderedMap is a mapping that remembers the order in which keys were
// declared. Content type and field declarations are order-sensitive (group
// switching, default sort fallbacks), so the raw configuration document is
// decoded into OrderedMap values rather than plain Go maps.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty ordered mapping.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

// OrderedMapOf builds an ordered mapping from alternating key/value pairs.
// Intended for tests and programmatic schema construction.
func OrderedMapOf(pairs ...any) *OrderedMap {
	if len(pairs)%2 != 0 {
		panic("schema.OrderedMapOf: odd number of arguments")
	}
	m := NewOrderedMap()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

// Set stores a value, appending the key when it is new.
func (m *OrderedMap) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key, or nil when absent.
func (m *OrderedMap) Get(key string) any {
	if m == nil {
		return nil
	}
	return m.values[key]
}

// Has reports whether key is present.
func (m *OrderedMap) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[key]
	return ok
}

// Delete removes a key, preserving the order of the remaining keys.
func (m *OrderedMap) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in declaration order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// GetString returns the value for key as a string, or "" when absent or not
// a string.
func (m *OrderedMap) GetString(key string) string {
	s, _ := m.Get(key).(string)
	return s
}

// GetBool returns the value for key as a bool, with ok reporting whether the
// key held a bool.
func (m *OrderedMap) GetBool(key string) (bool, bool) {
	b, ok := m.Get(key).(bool)
	return b, ok
}

// GetInt returns the value for key as an int, with ok reporting whether the
// key held an integer.
func (m *OrderedMap) GetInt(key string) (int, bool) {
	switch v := m.Get(key).(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// GetMap returns the value for key as an *OrderedMap, or nil.
func (m *OrderedMap) GetMap(key string) *OrderedMap {
	om, _ := m.Get(key).(*OrderedMap)
	return om
}

// UnmarshalYAML decodes a YAML mapping node, preserving key order. Nested
// mappings become *OrderedMap values and sequences become []any.
func (m *OrderedMap) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := decodeNode(node)
	if err != nil {
		return err
	}
	om, ok := decoded.(*OrderedMap)
	if !ok {
		return fmt.Errorf("expected a mapping, got %s", node.Tag)
	}
	*m = *om
	return nil
}

func decodeNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return NewOrderedMap(), nil
		}
		return decodeNode(node.Content[0])
	case yaml.MappingNode:
		m := NewOrderedMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return nil, err
			}
			value, err := decodeNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key, value)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := decodeNode(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, value)
		}
		return seq, nil
	case yaml.AliasNode:
		return decodeNode(node.Alias)
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// stringList coerces a raw scalar or sequence into a string slice, the way
// the configuration treats single values and lists interchangeably.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return []string{fmt.Sprintf("%v", t)}
	}
}
