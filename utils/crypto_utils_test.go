package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", SHA256Hex([]byte("abc")))
	assert.Len(t, SHA256Hex(nil), DIGEST_HEX_LEN)
}

func TestShortHex(t *testing.T) {
	assert.Equal(t, "0012...eeff", ShortHex("0012aabbccddeeff", 4))
	assert.Equal(t, "abcd", ShortHex("abcd", 4))
	assert.Equal(t, "abcd", ShortHex("abcd", 0))
}
