package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%lamp%", containsPattern("lamp"))
	assert.Equal(t, `%50\% off%`, containsPattern("50% off"))
	assert.Equal(t, `%ORD\_1%`, containsPattern("ORD_1"))
	assert.Equal(t, `%a\\b%`, containsPattern(`a\b`))
}
