package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJWTVerifier はJWT生成と検証を検証する。
func TestJWTVerifier(t *testing.T) {
	t.Parallel()

	const secret = "test-secret-key"

	t.Run("生成したトークンが検証できること", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateJWT(secret, "gardener", "alice", time.Hour)
		require.NoError(t, err)

		valid, claims, err := NewJWTVerifier(secret, "gardener").VerifyToken(token)
		require.NoError(t, err)
		assert.True(t, valid)
		assert.Equal(t, "alice", claims.User)
		assert.Equal(t, "alice", claims.Subject)
	})

	t.Run("異なる鍵で署名されたトークンはエラーになること", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateJWT("other-secret", "", "alice", time.Hour)
		require.NoError(t, err)

		valid, _, err := NewJWTVerifier(secret, "").VerifyToken(token)
		assert.Error(t, err)
		assert.False(t, valid)
	})

	t.Run("期限切れのトークンはエラーになること", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateJWT(secret, "", "alice", -time.Minute)
		require.NoError(t, err)

		valid, _, err := NewJWTVerifier(secret, "").VerifyToken(token)
		assert.Error(t, err)
		assert.False(t, valid)
	})

	t.Run("発行者が異なる場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateJWT(secret, "someone-else", "alice", time.Hour)
		require.NoError(t, err)

		_, _, err = NewJWTVerifier(secret, "gardener").VerifyToken(token)
		assert.Error(t, err)
	})

	t.Run("検証鍵が空の場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, _, err := NewJWTVerifier("", "").VerifyToken("anything")
		assert.Error(t, err)
	})

	t.Run("不正な形式のトークンはエラーになること", func(t *testing.T) {
		t.Parallel()

		_, _, err := NewJWTVerifier(secret, "").VerifyToken("not-a-jwt")
		assert.Error(t, err)
	})
}
