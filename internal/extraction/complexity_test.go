package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyComplexitySimpleDocumentIsStandard(t *testing.T) {
	a := ClassifyComplexity("Borrower John Smith applied for a mortgage.", 3)

	assert.Equal(t, LevelStandard, a.Level)
	assert.Equal(t, 1, a.EstimatedBorrowers)
	assert.False(t, a.HasHandwritten)
	assert.False(t, a.HasPoorQuality)
	assert.Empty(t, a.Reasons)
}

func TestClassifyComplexityMultiBorrowerMarkersEscalate(t *testing.T) {
	a := ClassifyComplexity("Primary borrower Jane Doe. Co-borrower John Doe is the spouse.", 2)

	assert.Equal(t, LevelComplex, a.Level)
	assert.Greater(t, a.EstimatedBorrowers, 1)
	assert.Contains(t, a.Reasons, "multi-borrower markers detected")
}

func TestClassifyComplexityLongDocumentEscalates(t *testing.T) {
	a := ClassifyComplexity("plain text", 11)

	assert.Equal(t, LevelComplex, a.Level)
	assert.Contains(t, a.Reasons, "page count exceeds 10")
}

func TestClassifyComplexityPoorQualityRequiresMultipleHits(t *testing.T) {
	single := ClassifyComplexity("one [illegible] marker", 1)
	assert.Equal(t, LevelStandard, single.Level)

	many := ClassifyComplexity("[illegible] [unclear] ??? [illegible]", 1)
	assert.True(t, many.HasPoorQuality)
	assert.Equal(t, LevelComplex, many.Level)
}

func TestClassifyComplexityHandwrittenMarkerEscalates(t *testing.T) {
	a := ClassifyComplexity("Signature: [handwritten] John Smith", 1)

	assert.True(t, a.HasHandwritten)
	assert.Equal(t, LevelComplex, a.Level)
}
