package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	t.Parallel()

	// Known SHA-256 of "hello".
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		Fingerprint([]byte("hello")))
}

func TestFingerprintIsDeterministic(t *testing.T) {
	t.Parallel()

	a := Fingerprint([]byte("same bytes"))
	b := Fingerprint([]byte("same bytes"))
	c := Fingerprint([]byte("different bytes"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
