package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"killay/domain/catalog"
	"killay/ports"
)

const (
	keyCollections = "collections"
	keyCategories  = "categories"
)

// Config bounds the choice cache
type Config struct {
	Size int
	TTL  time.Duration
}

// DefaultConfig returns the cache settings used when none are configured
func DefaultConfig() Config {
	return Config{Size: 16, TTL: 5 * time.Minute}
}

// ChoiceSource caches collection and category listings used to build
// template choice lists. Purge drops them after an import changes the catalog.
type ChoiceSource struct {
	next        ports.ChoiceSource
	collections *expirable.LRU[string, []catalog.Collection]
	categories  *expirable.LRU[string, []catalog.Category]
}

// NewChoiceSource wraps next with an expiring cache
func NewChoiceSource(next ports.ChoiceSource, cfg Config) *ChoiceSource {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &ChoiceSource{
		next:        next,
		collections: expirable.NewLRU[string, []catalog.Collection](cfg.Size, nil, cfg.TTL),
		categories:  expirable.NewLRU[string, []catalog.Category](cfg.Size, nil, cfg.TTL),
	}
}

func (c *ChoiceSource) ListCollections(ctx context.Context) ([]catalog.Collection, error) {
	if cached, ok := c.collections.Get(keyCollections); ok {
		return append([]catalog.Collection(nil), cached...), nil
	}
	collections, err := c.next.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	c.collections.Add(keyCollections, append([]catalog.Collection(nil), collections...))
	return collections, nil
}

func (c *ChoiceSource) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	if cached, ok := c.categories.Get(keyCategories); ok {
		return append([]catalog.Category(nil), cached...), nil
	}
	categories, err := c.next.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	c.categories.Add(keyCategories, append([]catalog.Category(nil), categories...))
	return categories, nil
}

// Purge empties the cache
func (c *ChoiceSource) Purge() {
	c.collections.Purge()
	c.categories.Purge()
}
