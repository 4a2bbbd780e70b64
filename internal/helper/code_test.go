package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode_Shape(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.True(t, IsCode(code), code)
	}
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode("004567"))
	assert.True(t, IsCode("999999"))
	assert.False(t, IsCode("12345"))
	assert.False(t, IsCode("1234567"))
	assert.False(t, IsCode("12a456"))
	assert.False(t, IsCode(""))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
}
