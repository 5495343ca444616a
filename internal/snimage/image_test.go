package snimage

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	t.Parallel()

	t.Run("empty key has no token", func(t *testing.T) {
		assert.Nil(t, Token(nil))
		assert.Nil(t, Token([]byte{}))
	})

	t.Run("last 8 digest bytes reversed", func(t *testing.T) {
		key := []byte("some public key blob")
		sum := sha1.Sum(key)

		tok := Token(key)
		require.Len(t, tok, 8)
		for i := 0; i < 8; i++ {
			assert.Equal(t, sum[len(sum)-1-i], tok[i])
		}
	})

	t.Run("stable across cache hits", func(t *testing.T) {
		key := []byte("another key")
		assert.Equal(t, Token(key), Token(key))
	})
}

func TestStripIdentity(t *testing.T) {
	t.Parallel()

	key := []byte{1, 2, 3}
	img := &Image{
		Name:           "A",
		PublicKey:      key,
		PublicKeyToken: Token(key),
		Signed:         true,
	}
	require.True(t, img.StrongNamed())

	img.StripIdentity()

	assert.False(t, img.StrongNamed())
	assert.Nil(t, img.PublicKey)
	assert.Nil(t, img.PublicKeyToken)
	assert.False(t, img.Signed)
	assert.Equal(t, "A", img.Name, "the plain name survives a strip")
}

func TestTrustDecl(t *testing.T) {
	t.Parallel()

	t.Run("target name is text before the first comma", func(t *testing.T) {
		d := &TrustDecl{Argument: "Friend.Tests, PublicKey=0024000004800000"}
		assert.Equal(t, "Friend.Tests", d.TargetName())
	})

	t.Run("bare argument is its own target name", func(t *testing.T) {
		d := &TrustDecl{Argument: "Friend.Tests"}
		assert.Equal(t, "Friend.Tests", d.TargetName())
	})

	t.Run("strip key drops the qualification", func(t *testing.T) {
		d := &TrustDecl{Argument: "Friend.Tests, PublicKey=0024000004800000"}
		d.StripKey()
		assert.Equal(t, "Friend.Tests", d.Argument)
	})

	t.Run("strip key normalizes a padded bare name", func(t *testing.T) {
		d := &TrustDecl{Argument: "  Friend.Tests  "}
		d.StripKey()
		assert.Equal(t, "Friend.Tests", d.Argument)
	})
}

func TestLookupHelpers(t *testing.T) {
	t.Parallel()

	img := &Image{
		Refs: []*AssemblyRef{
			{Name: "Alpha"},
			{Name: "Beta", PublicKeyToken: []byte{9}},
		},
		Trusts: []*TrustDecl{
			{Argument: "Gamma, PublicKey=AA"},
		},
	}

	assert.Same(t, img.Refs[1], img.RefTo("Beta"))
	assert.Nil(t, img.RefTo("beta"), "reference lookup is exact")
	assert.Nil(t, img.RefTo("Missing"))

	assert.Same(t, img.Trusts[0], img.TrustOf("GAMMA"), "trust lookup is case-insensitive")
	assert.Nil(t, img.TrustOf("Delta"))
}

func TestCloseReleasesPayload(t *testing.T) {
	t.Parallel()

	img := &Image{Payload: []byte("body")}
	require.NoError(t, img.Close())
	assert.Nil(t, img.Payload)
	require.NoError(t, img.Close(), "close is idempotent")
}
