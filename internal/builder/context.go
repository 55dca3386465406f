package builder

import (
	"fmt"

	"github.com/leapstack-labs/dashgen/internal/document"
	starctx "github.com/leapstack-labs/dashgen/internal/starlark"
	"go.starlark.net/starlark"
)

// Context accumulates rendered items for one datasource. Every category has
// a dict that templates see from the start, so a template may refer to its own
// category or a later one and simply find it empty (or partly filled).
type Context struct {
	datasource string
	vars       starlark.StringDict
	dicts      map[string]*starlark.Dict
	items      map[string]*document.Map
	order      []string
}

// NewContext creates a context holding datasource, labels and one empty
// mapping per category name.
func NewContext(datasource string, labels []string, categories []Category) *Context {
	c := &Context{
		datasource: datasource,
		vars: starlark.StringDict{
			"datasource": starlark.String(datasource),
			"labels":     starctx.StringList(labels),
		},
		dicts: make(map[string]*starlark.Dict),
		items: make(map[string]*document.Map),
	}
	for _, cat := range categories {
		c.ensure(cat.Name)
	}
	return c
}

func (c *Context) ensure(category string) {
	if _, ok := c.dicts[category]; ok {
		return
	}
	d := starlark.NewDict(0)
	c.dicts[category] = d
	c.items[category] = document.NewMap()
	c.vars[category] = d
	c.order = append(c.order, category)
}

// Datasource returns the datasource the context was built for.
func (c *Context) Datasource() string { return c.datasource }

// Vars returns the render variables. The category dicts are shared, so items
// stored later are visible to templates rendered later.
func (c *Context) Vars() starlark.StringDict { return c.vars }

// Categories returns the category names in the order they were added.
func (c *Context) Categories() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Has reports whether the category exists in the context.
func (c *Context) Has(category string) bool {
	_, ok := c.items[category]
	return ok
}

// Set stores a rendered item. It reports whether an item with the same name was replaced.
func (c *Context) Set(category, name string, data any) (bool, error) {
	c.ensure(category)

	sv, err := starctx.FromDocument(data)
	if err != nil {
		return false, fmt.Errorf("failed to expose %s[%q] to templates: %w", category, name, err)
	}
	if err := c.dicts[category].SetKey(starlark.String(name), sv); err != nil {
		return false, fmt.Errorf("failed to store %s[%q]: %w", category, name, err)
	}

	replaced := c.items[category].Has(name)
	c.items[category].Set(name, data)
	return replaced, nil
}

// Items returns the rendered items of a category in insertion order, or nil
// when the category does not exist.
func (c *Context) Items(category string) *document.Map {
	return c.items[category]
}
