package rand

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringWithSmall(t *testing.T) {
	seen := map[string]bool{}
	for _, n := range []int{1, 6, 16, 64} {
		s := StringWithSmall(n)
		assert.Len(t, s, n)
		assert.Empty(t, strings.Trim(s, smallLetters), "unexpected characters in %q", s)
		seen[s] = true
	}
	assert.Len(t, seen, 4)
	assert.Empty(t, StringWithSmall(0))
}
