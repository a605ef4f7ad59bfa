package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"José Pérez", "jose-perez"},
		{"  fake-person1 ", "fake-person1"},
		{"Ñuñoa, Santiago!", "nunoa-santiago"},
		{"UPPER case", "upper-case"},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestKindIsValid(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.IsValid(), string(k))
	}
	assert.False(t, Kind("BIDEO").IsValid())
	assert.False(t, Kind("video").IsValid())
}

func TestChoiceLabels(t *testing.T) {
	collectionID := int64(3)
	collection := Collection{ID: 3, Name: "Memoria", Slug: "memoria"}
	assert.Equal(t, "Memoria | [3]", collection.ChoiceLabel())

	scoped := Category{ID: 7, Name: "Protestas", CollectionID: &collectionID, CollectionSlug: "memoria"}
	assert.Equal(t, "Protestas - (memoria) | [7]", scoped.ChoiceLabel())
	assert.True(t, scoped.BelongsTo(3))
	assert.False(t, scoped.BelongsTo(4))

	global := Category{ID: 8, Name: "Retratos"}
	assert.Equal(t, "Retratos | [8]", global.ChoiceLabel())
	assert.False(t, global.BelongsTo(3))
}
