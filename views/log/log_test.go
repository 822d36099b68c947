package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeight(t *testing.T) {
	assert.Equal(t, 4, Height(12))
	assert.Equal(t, 10, Height(30))
	assert.Equal(t, 15, Height(80))
}
