// Package categorize assigns a spending category to a transaction description
// by keyword substring matching against an ordered category table.
package categorize

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultTable []byte

// Category is one entry of the table. Keywords are lowercase substrings.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Table is an ordered, immutable list of categories. The first category whose
// keyword occurs in a description wins; the last entry is the catch-all.
type Table struct {
	categories []Category
}

// NewTable validates and copies the given categories.
func NewTable(categories []Category) (*Table, error) {
	if len(categories) == 0 {
		return nil, errors.New("category table is empty")
	}

	seen := make(map[string]struct{}, len(categories))
	copied := make([]Category, len(categories))
	for i, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("category %d: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("category %q declared twice", name)
		}
		seen[name] = struct{}{}

		last := i == len(categories)-1
		if last && len(c.Keywords) > 0 {
			return nil, fmt.Errorf("catch-all category %q must not have keywords", name)
		}
		if !last && len(c.Keywords) == 0 {
			return nil, fmt.Errorf("category %q has no keywords; only the last category may be a catch-all", name)
		}

		keywords := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			kw = lower(strings.TrimSpace(kw))
			if kw == "" {
				return nil, fmt.Errorf("category %q: empty keyword", name)
			}
			keywords = append(keywords, kw)
		}
		copied[i] = Category{Name: name, Keywords: keywords}
	}

	return &Table{categories: copied}, nil
}

// Parse reads a YAML list of {name, keywords} entries.
func Parse(data []byte) (*Table, error) {
	var categories []Category
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("parsing category table: %w", err)
	}
	return NewTable(categories)
}

// Load reads a category table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category table: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in category table.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("embedded category table: %v", err))
	}
	return t
}

// Categories returns a copy of the table entries in declared order.
func (t *Table) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		out[i] = Category{Name: c.Name, Keywords: append([]string(nil), c.Keywords...)}
	}
	return out
}

// CatchAll returns the name of the category used when nothing matches.
func (t *Table) CatchAll() string {
	return t.categories[len(t.categories)-1].Name
}

// Categorizer maps descriptions to category names using a Table.
type Categorizer struct {
	table *Table
}

// New creates a Categorizer over the given table.
func New(table *Table) *Categorizer {
	return &Categorizer{table: table}
}

// Categorize returns the first category, in table order, with a keyword contained
// in the lowercased description, or the catch-all category.
func (c *Categorizer) Categorize(description string) string {
	desc := lower(description)
	for _, cat := range c.table.categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(desc, kw) {
				return cat.Name
			}
		}
	}
	return c.table.CatchAll()
}

// lower folds s to lowercase. A Caser keeps state, so one is made per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
