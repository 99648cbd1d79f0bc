package poster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "auto's", NormalizeLabel("  Auto's (12.345)  "))
	assert.Equal(t, "boeken", NormalizeLabel("Boeken"))
	assert.Equal(t, "tuin en terras", NormalizeLabel("Tuin en Terras (9)"))
	assert.Equal(t, "", NormalizeLabel("   "))
	// only a trailing parenthetical is stripped
	assert.Equal(t, "hifi (vintage) spelers", NormalizeLabel("HiFi (vintage) spelers"))
}

func TestMatchesExact(t *testing.T) {
	assert.True(t, MatchesExact("Auto's", "auto's (12.345)"))
	assert.False(t, MatchesExact("Auto", "Auto's"))
	assert.False(t, MatchesExact("", "Auto's"))
}

func TestMatchesPartial(t *testing.T) {
	assert.True(t, MatchesPartial("Tools", "Tools & Garden"))
	assert.True(t, MatchesPartial("Tools & Garden", "Tools"))
	assert.False(t, MatchesPartial("Fietsen", "Auto's"))
	assert.False(t, MatchesPartial("", "Auto's"))
}

func TestBestMatchPrefersExactOverEarlierPartial(t *testing.T) {
	labels := []string{"Doe-het-zelf en Verbouw", "Verbouw"}
	// the partial match comes first in the list, the exact match must still win
	assert.Equal(t, 1, BestMatch("Verbouw", labels))

	labels = []string{"Zakelijke goederen", "Overige"}
	assert.Equal(t, 0, BestMatch("Zakelijk", labels))

	assert.Equal(t, -1, BestMatch("Fietsen", []string{"Auto's", "Boeken"}))
	assert.Equal(t, -1, BestMatch("Fietsen", nil))
}

func TestSplitCategoryPath(t *testing.T) {
	assert.Equal(t,
		[]string{"Doe-het-zelf en Verbouw", "Platen en Panelen", "Overige"},
		SplitCategoryPath(" Doe-het-zelf en Verbouw > Platen en Panelen>Overige "))
	assert.Nil(t, SplitCategoryPath(""))
	assert.Nil(t, SplitCategoryPath(" > > "))
}

func TestFieldNameVariants(t *testing.T) {
	assert.Equal(t,
		[]string{"singleSelectAttribute[condition]", "condition"},
		FieldNameVariants("condition"))
	assert.Equal(t,
		[]string{"singleSelectAttribute[totalSurface]", "totalSurface", "singleSelectAttribute[totalsurface]", "totalsurface"},
		FieldNameVariants("totalSurface"))
	assert.Nil(t, FieldNameVariants("  "))
}
