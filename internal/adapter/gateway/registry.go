package gateway

import (
	"fmt"
	"sort"
	"strings"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
)

// Registry holds enabled gateways by name.
type Registry struct {
	gateways    map[string]Gateway
	defaultName string
}

// NewRegistry builds registry. The default gateway must be one of gateways
// unless no gateway is enabled at all.
func NewRegistry(defaultName string, gateways ...Gateway) (*Registry, error) {
	r := &Registry{
		gateways:    make(map[string]Gateway, len(gateways)),
		defaultName: strings.ToLower(defaultName),
	}
	for _, g := range gateways {
		name := strings.ToLower(g.Name())
		if _, ok := r.gateways[name]; ok {
			return nil, fmt.Errorf("gateway %q registered twice", name)
		}
		r.gateways[name] = g
	}
	if len(r.gateways) > 0 {
		if _, ok := r.gateways[r.defaultName]; !ok {
			return nil, fmt.Errorf("default gateway %q is not enabled", defaultName)
		}
	}
	return r, nil
}

// Get resolves gateway by name. An empty name selects the default.
func (r *Registry) Get(name string) (Gateway, error) {
	if name == "" {
		name = r.defaultName
	}
	g, ok := r.gateways[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrUnknownGateway, name)
	}
	return g, nil
}

func (r *Registry) Default() string {
	return r.defaultName
}

// Names lists enabled gateways in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
