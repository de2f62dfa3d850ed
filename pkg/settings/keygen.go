package settings

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

const (
	keyDraws     = 3
	keyDrawWidth = 13 // base-36 digits needed for a full uint64
)

// NewAPIKey returns a random credential for the local node API: three
// independent 64-bit draws, each rendered as 13 base-36 digits.
func NewAPIKey() (string, error) {
	var b strings.Builder
	b.Grow(keyDraws * keyDrawWidth)

	var buf [8]byte
	for range keyDraws {
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("generate api key: %w", err)
		}
		part := strconv.FormatUint(binary.LittleEndian.Uint64(buf[:]), 36)
		b.WriteString(strings.Repeat("0", keyDrawWidth-len(part)))
		b.WriteString(part)
	}
	return b.String(), nil
}
