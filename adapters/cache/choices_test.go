package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"killay/domain/catalog"
)

type countingSource struct {
	collections []catalog.Collection
	categories  []catalog.Category
	err         error

	collectionCalls int
	categoryCalls   int
}

func (s *countingSource) ListCollections(ctx context.Context) ([]catalog.Collection, error) {
	s.collectionCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.collections, nil
}

func (s *countingSource) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	s.categoryCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.categories, nil
}

func TestChoiceSourceCachesListings(t *testing.T) {
	next := &countingSource{
		collections: []catalog.Collection{{ID: 1, Name: "Fondo Lima"}},
		categories:  []catalog.Category{{ID: 2, Name: "Actos"}},
	}
	c := NewChoiceSource(next, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		collections, err := c.ListCollections(ctx)
		require.NoError(t, err)
		assert.Equal(t, next.collections, collections)

		categories, err := c.ListCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, next.categories, categories)
	}
	assert.Equal(t, 1, next.collectionCalls)
	assert.Equal(t, 1, next.categoryCalls)

	c.Purge()
	_, err := c.ListCollections(ctx)
	require.NoError(t, err)
	_, err = c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.collectionCalls)
	assert.Equal(t, 2, next.categoryCalls)
}

func TestChoiceSourceReturnsCopies(t *testing.T) {
	next := &countingSource{collections: []catalog.Collection{{ID: 1, Name: "Fondo Lima"}}}
	c := NewChoiceSource(next, DefaultConfig())
	ctx := context.Background()

	_, err := c.ListCollections(ctx)
	require.NoError(t, err)
	cached, err := c.ListCollections(ctx)
	require.NoError(t, err)
	cached[0].Name = "changed"

	again, err := c.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fondo Lima", again[0].Name)
}

func TestChoiceSourceExpires(t *testing.T) {
	next := &countingSource{collections: []catalog.Collection{{ID: 1}}}
	c := NewChoiceSource(next, Config{Size: 1, TTL: 20 * time.Millisecond})
	ctx := context.Background()

	_, err := c.ListCollections(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := c.ListCollections(ctx)
		return err == nil && next.collectionCalls == 2
	}, time.Second, 10*time.Millisecond)
}

func TestChoiceSourceDoesNotCacheErrors(t *testing.T) {
	next := &countingSource{err: errors.New("db down")}
	c := NewChoiceSource(next, Config{})
	ctx := context.Background()

	_, err := c.ListCategories(ctx)
	require.Error(t, err)

	next.err = nil
	next.categories = []catalog.Category{{ID: 3}}
	categories, err := c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
	assert.Equal(t, 2, next.categoryCalls)
}
