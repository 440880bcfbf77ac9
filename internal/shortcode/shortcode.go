// Package shortcode encodes allocated link identifiers into URL-safe paths.
//
// The encoding is base-36 over the alphabet 0-9a-z, most significant digit
// first, without padding. Numeric order implies encoded order: shorter codes
// sort before longer ones, equal-length codes compare lexically.
package shortcode

import (
	"errors"
	"regexp"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const base = 36

var ErrInvalidCharacter = errors.New("invalid character in short code")

var pathPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// Encode converts an allocated identifier to its path form. Zero encodes to
// the empty string; callers allocate from 1.
func Encode(id uint64) string {
	if id == 0 {
		return ""
	}

	buf := make([]byte, 0, 13) // 36^13 > MaxUint64
	for id > 0 {
		buf = append(buf, alphabet[id%base])
		id /= base
	}

	// Digits were produced least significant first.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// Decode is the inverse of Encode, kept for audit tooling.
func Decode(code string) (uint64, error) {
	var result uint64
	for i := 0; i < len(code); i++ {
		v := strings.IndexByte(alphabet, code[i])
		if v < 0 {
			return 0, ErrInvalidCharacter
		}
		result = result*base + uint64(v)
	}
	return result, nil
}

// ValidPath reports whether a custom path uses the allowed character set.
func ValidPath(path string) bool {
	return pathPattern.MatchString(path)
}
