package utils

import (
	"encoding/hex"
)

func BytesToHex(bytes []byte) string {
	return hex.EncodeToString(bytes)
}

// Shorten a hex digest for display, e.g. "0012ab...ffe0".
func ShortHex(s string, n int) string {
	if n <= 0 || len(s) <= 2*n {
		return s
	}
	return s[:n] + "..." + s[len(s)-n:]
}
