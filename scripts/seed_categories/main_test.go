package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategories(t *testing.T) {
	raw := []byte(`
categories:
  - id: water-supply
    name: " Water Supply "
    color: "#1E88E5"
  - id: legacy
    name: Legacy
    active: false
`)
	cats, err := parseCategories(raw)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Water Supply", cats[0].Name)
	assert.True(t, cats[0].Active)
	assert.False(t, cats[1].Active)
}

func TestParseCategoriesRejectsBadEntries(t *testing.T) {
	_, err := parseCategories([]byte("categories:\n  - id: roads\n"))
	assert.Error(t, err)

	_, err = parseCategories([]byte("categories:\n  - {id: roads, name: Roads}\n  - {id: roads, name: Again}\n"))
	assert.ErrorContains(t, err, "listed twice")

	_, err = parseCategories([]byte("categories: [unterminated"))
	assert.Error(t, err)
}

func TestBundledSeedFileParses(t *testing.T) {
	cats, err := loadCategories("categories.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, cats)
}
