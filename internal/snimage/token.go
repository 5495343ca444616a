package snimage

import (
	"crypto/sha1"

	lru "github.com/hashicorp/golang-lru/v2"
)

// tokenCache memoizes derived tokens. Load sets within one run tend to
// share a handful of signing keys, so the hit rate is high.
var tokenCache, _ = lru.New[string, []byte](128)

// Token derives the public-key token for a key blob: the last 8 bytes of
// the blob's SHA-1 digest, in reverse order. Returns nil for an empty key.
func Token(publicKey []byte) []byte {
	if len(publicKey) == 0 {
		return nil
	}
	if tok, ok := tokenCache.Get(string(publicKey)); ok {
		return tok
	}
	sum := sha1.Sum(publicKey)
	tok := make([]byte, 8)
	for i := range tok {
		tok[i] = sum[len(sum)-1-i]
	}
	tokenCache.Add(string(publicKey), tok)
	return tok
}
