package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Category
		matched bool
	}{
		{"exact match", "5450 Direct Lodging", DirectLodging, true},
		{"case insensitive", "5500 direct meals and incidental", DirectMeals, true},
		{"surrounding whitespace", "  5400 Direct Travel  ", DirectTravel, true},
		{"unknown falls back to default", "Misc Snacks", DefaultCategory, false},
		{"empty falls back to default", "", DefaultCategory, false},
		{"partial name is not a match", "Direct Lodging", DefaultCategory, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := CoerceCategory(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestIsCategory(t *testing.T) {
	assert.True(t, IsCategory(string(GATravel)))
	assert.False(t, IsCategory("8320 g&a travel")) // membership check is exact
	assert.False(t, IsCategory(""))
}

func TestCeilingCategorySets(t *testing.T) {
	assert.True(t, IsLodging(DirectLodging))
	assert.True(t, IsMeals(DirectMeals))

	for _, c := range Categories() {
		if c == DirectLodging || c == DirectMeals {
			continue
		}
		assert.False(t, IsLodging(c), "category %s should not be lodging-capped", c)
		assert.False(t, IsMeals(c), "category %s should not be meals-capped", c)
	}
}

func TestCategoryStringsMatchesList(t *testing.T) {
	strs := CategoryStrings()
	cats := Categories()
	assert.Len(t, strs, len(cats))
	for i, c := range cats {
		assert.Equal(t, string(c), strs[i])
	}
}

func TestCoerceProject(t *testing.T) {
	got, matched := CoerceProject(string(Acme))
	assert.Equal(t, Acme, got)
	assert.True(t, matched)

	got, matched = CoerceProject("Some Other Client")
	assert.Equal(t, DefaultProject, got)
	assert.False(t, matched)
}
