package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Lookup is an immutable string-to-string reference table. Pipelines
// receive lookups explicitly instead of reading ambient maps, so a
// stage's inputs are visible at its call site.
type Lookup struct {
	name    string
	entries map[string]string
}

// NewLookup copies entries into an immutable lookup.
func NewLookup(name string, entries map[string]string) *Lookup {
	copied := make(map[string]string, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Lookup{name: name, entries: copied}
}

// LoadLookup reads a lookup from a YAML file holding a flat
// string-to-string mapping.
func LoadLookup(name, filename string) (*Lookup, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading lookup file %s: %w", filename, err)
	}
	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing lookup file %s: %w", filename, err)
	}
	return NewLookup(name, entries), nil
}

// Name returns the lookup's name, used in error messages.
func (l *Lookup) Name() string { return l.name }

// Len returns the number of entries.
func (l *Lookup) Len() int { return len(l.entries) }

// Get returns the value mapped to key.
func (l *Lookup) Get(key string) (string, bool) {
	v, ok := l.entries[key]
	return v, ok
}

// Keys returns the keys in sorted order.
func (l *Lookup) Keys() []string {
	keys := make([]string, 0, len(l.entries))
	for k := range l.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the mapping.
func (l *Lookup) Entries() map[string]string {
	copied := make(map[string]string, len(l.entries))
	for k, v := range l.entries {
		copied[k] = v
	}
	return copied
}
