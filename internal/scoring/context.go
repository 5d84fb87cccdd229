package scoring

import (
	"errors"

	"github.com/skitourlive/skitourlive/internal/avalanche"
	"github.com/skitourlive/skitourlive/internal/model"
	"github.com/skitourlive/skitourlive/internal/route"
	"github.com/skitourlive/skitourlive/internal/weather"
)

// Scoring errors.
var (
	ErrInvalidLevel      = errors.New("user level must be S1..S5")
	ErrInvalidDplusRange = errors.New("invalid elevation gain range")
	ErrRouteNotFound     = errors.New("route not found")
	ErrNoWeather         = errors.New("scoring context has no weather source")
)

// Context is the read-only reference data shared by all scoring calls.
// It is built once per dataset load and never mutated.
type Context struct {
	Routes    []route.Route
	Weather   weather.Source
	Avalanche *avalanche.Table

	// Model is optional. When nil or failing, winter scores use the physical rules.
	Model *model.Adapter

	byID map[string]int
}

// NewContext builds a Context and indexes routes by ID. Later duplicates
// of an ID are not reachable through RouteByID.
func NewContext(routes []route.Route, w weather.Source, table *avalanche.Table, m *model.Adapter) (*Context, error) {
	if w == nil {
		return nil, ErrNoWeather
	}

	c := &Context{
		Routes:    routes,
		Weather:   w,
		Avalanche: table,
		Model:     m,
		byID:      make(map[string]int, len(routes)),
	}
	for i, r := range routes {
		if _, dup := c.byID[r.ID]; !dup {
			c.byID[r.ID] = i
		}
	}
	return c, nil
}

// WithModel returns a shallow copy of c that uses m as its model.
func (c *Context) WithModel(m *model.Adapter) *Context {
	cp := *c
	cp.Model = m
	return &cp
}

// RouteByID returns the route with the given ID.
func (c *Context) RouteByID(id string) (route.Route, error) {
	i, ok := c.byID[id]
	if !ok {
		return route.Route{}, ErrRouteNotFound
	}
	return c.Routes[i], nil
}

// Massifs returns the distinct massifs of the loaded routes in first-seen order.
func (c *Context) Massifs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.Routes {
		if r.Massif == "" || seen[r.Massif] {
			continue
		}
		seen[r.Massif] = true
		out = append(out, r.Massif)
	}
	return out
}
