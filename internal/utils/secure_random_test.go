package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, err := GenerateRandomDigits(9)
		require.NoError(t, err)
		assert.Len(t, s, 9)
		assert.Regexp(t, `^[0-9]{9}$`, s)
	}

	_, err := GenerateRandomDigits(0)
	assert.Error(t, err)
}

func TestGenerateRandomDigits_OutOfRange(t *testing.T) {
	_, err := GenerateRandomDigits(19)
	assert.Error(t, err)
}
