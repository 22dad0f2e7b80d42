package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundtrip(t *testing.T) {
	hash, err := HashPassword("s3cret-密码")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-密码", hash)

	assert.True(t, CheckPasswordHash("s3cret-密码", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
	assert.False(t, CheckPasswordHash("s3cret-密码", "not-a-hash"))
}

func TestPasswordHashSalted(t *testing.T) {
	first, err := HashPassword("same")
	require.NoError(t, err)
	second, err := HashPassword("same")
	require.NoError(t, err)
	// 加盐哈希，同一明文两次输出不同
	assert.NotEqual(t, first, second)
}
