package balancer

import "fmt"

// Factory resolves a named strategy to a Selector.
type Factory struct {
	creators map[string]func() Selector
}

func NewFactory() *Factory {
	f := &Factory{creators: make(map[string]func() Selector)}
	f.Register(DefaultStrategyWeighted, func() Selector { return NewWeightedSelector() })
	f.Register(DefaultStrategyRoundRobin, func() Selector { return NewRoundRobinSelector() })
	return f
}

func (f *Factory) Register(name string, creator func() Selector) {
	f.creators[name] = creator
}

func (f *Factory) Create(name string) (Selector, error) {
	creator, ok := f.creators[name]
	if !ok {
		return nil, fmt.Errorf("unknown load balancer strategy: %s", name)
	}
	return creator(), nil
}

func (f *Factory) AvailableStrategies() []string {
	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	return names
}
