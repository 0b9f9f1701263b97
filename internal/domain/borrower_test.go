package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceReferenceHasOffsets(t *testing.T) {
	assert.True(t, SourceReference{CharStart: 0, CharEnd: 10}.HasOffsets())
	assert.False(t, SourceReference{CharStart: -1, CharEnd: -1}.HasOffsets())
	assert.False(t, SourceReference{CharStart: 0, CharEnd: -1}.HasOffsets())
}
