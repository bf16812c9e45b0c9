package goal

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Option is one selectable chip for a dimension.
type Option struct {
	Value             string `json:"value"                 yaml:"value"`
	DisplayText       string `json:"displayText"           yaml:"displayText"`
	Description       string `json:"description,omitempty" yaml:"description"`
	AllowsCustomInput bool   `json:"allowsCustomInput"     yaml:"allowsCustomInput"`
}

type catalogEntry struct {
	Option  `yaml:",inline"`
	Default bool `yaml:"default"`
}

//nolint:gochecknoglobals // parsed once from the embedded catalog.
var catalog = mustParseCatalog(catalogYAML)

func mustParseCatalog(data []byte) map[Dimension][]catalogEntry {
	c, err := parseCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

func parseCatalog(data []byte) (map[Dimension][]catalogEntry, error) {
	var c map[Dimension][]catalogEntry
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	for _, d := range declarationOrder {
		entries, ok := c[d]
		if !ok || len(entries) == 0 {
			return nil, fmt.Errorf("catalog has no options for %s", d)
		}
		defaults := 0
		for _, e := range entries {
			if e.Value == "" || e.DisplayText == "" {
				return nil, fmt.Errorf("catalog option for %s is missing value or display text", d)
			}
			if e.Default {
				defaults++
			}
		}
		if defaults > 1 {
			return nil, fmt.Errorf("catalog has %d default options for %s", defaults, d)
		}
	}
	for d := range c {
		if !d.Valid() {
			return nil, fmt.Errorf("catalog has unknown dimension %q", d)
		}
	}
	return c, nil
}

// OptionsFor returns the options of dimension d in display order.
func OptionsFor(d Dimension) []Option {
	entries := catalog[d]
	options := make([]Option, len(entries))
	for i, e := range entries {
		options[i] = e.Option
	}
	return options
}

// DefaultOptionFor returns the preselected option of dimension d, if it has one.
func DefaultOptionFor(d Dimension) (Option, bool) {
	i := slices.IndexFunc(catalog[d], func(e catalogEntry) bool { return e.Default })
	if i < 0 {
		return Option{}, false
	}
	return catalog[d][i].Option, true
}

// LookupOption finds the option of dimension d with the given value.
func LookupOption(d Dimension, value string) (Option, bool) {
	i := slices.IndexFunc(catalog[d], func(e catalogEntry) bool { return e.Value == value })
	if i < 0 {
		return Option{}, false
	}
	return catalog[d][i].Option, true
}
