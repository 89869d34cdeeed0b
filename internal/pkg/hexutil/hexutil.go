// Package hexutil parses hex-encoded quantities from raw JSON-RPC
// payloads (block numbers, log indexes).
package hexutil

import (
	"strconv"
	"strings"
)

// ParseInt64 parses a hex-encoded string to int64. Handles both "0x"
// prefixed and non-prefixed strings.
func ParseInt64(hexNum string) (int64, error) {
	hexNum = strings.TrimPrefix(hexNum, "0x")
	return strconv.ParseInt(hexNum, 16, 64)
}
