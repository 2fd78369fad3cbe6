package services

import (
	"fmt"
)

// Registry resolves an entity slug to its engine.
type Registry struct {
	engines map[string]*Engine
	order   []string
}

func NewRegistry(engines ...*Engine) *Registry {
	r := &Registry{engines: make(map[string]*Engine, len(engines))}
	for _, e := range engines {
		r.Register(e)
	}
	return r
}

func (r *Registry) Register(e *Engine) {
	slug := e.Config().Slug
	if _, ok := r.engines[slug]; !ok {
		r.order = append(r.order, slug)
	}
	r.engines[slug] = e
}

func (r *Registry) Get(slug string) (*Engine, error) {
	e, ok := r.engines[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, slug)
	}
	return e, nil
}

// Entities lists registered slugs in registration order.
func (r *Registry) Entities() []string {
	return append([]string(nil), r.order...)
}
