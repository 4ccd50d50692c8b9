package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "morning run", SanitizeText("  <b>morning</b> run<script>alert(1)</script> "))
	assert.Equal(t, "Tom & Jerry", SanitizeText("Tom & Jerry"))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, UniqueStrings([]string{"a", "b", "a"}))
	assert.True(t, HasDuplicates([]string{"x", "x"}))
	assert.False(t, HasDuplicates([]string{"x", "y"}))
}

func TestNewPage(t *testing.T) {
	p := NewPage([]int{1}, 41, 2, 20)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 0, NewPage(nil, 0, 1, 20).Pages)
}
