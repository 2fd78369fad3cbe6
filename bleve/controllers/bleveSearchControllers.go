package controllers

import (
	"context"

	"medequip-backend/bleve/repositories"
	imports "medequip-backend/imports/services"
)

// ResultCache caches search responses per entity and query.
type ResultCache interface {
	Key(resource string, params map[string]string) string
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

type SearchController struct {
	repo     repositories.BleveRepositoryInterface
	registry *imports.Registry
	cache    ResultCache
}

// NewSearchController builds the search handlers. cache may be nil.
func NewSearchController(repo repositories.BleveRepositoryInterface, registry *imports.Registry, cache ResultCache) *SearchController {
	return &SearchController{repo: repo, registry: registry, cache: cache}
}
