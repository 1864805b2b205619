// Package rand generates identifiers from crypto/rand.
package rand

import (
	"crypto/rand"

	"github.com/sirupsen/logrus"
)

const smallLetters = "0123456789abcdefghijklmnopqrstuvwxyz"

// StringWithSmall returns n characters from [0-9a-z]. The result is safe in
// URL paths and DNS labels.
func StringWithSmall(n int) string {
	return secureRandomString(smallLetters, n)
}

// secureRandomString draws bytes, masks them to the smallest power of two
// covering the alphabet and rejects the ones that fall outside it, so every
// character is equally likely.
func secureRandomString(alphabet string, length int) string {
	if len(alphabet) == 0 || len(alphabet) > 256 {
		panic("alphabet length must be between 1 and 256")
	}

	mask := byte(0)
	for mask < byte(len(alphabet)-1) {
		mask = mask<<1 | 1
	}

	result := make([]byte, 0, length)
	buf := make([]byte, length+length/3+1)
	for len(result) < length {
		secureRandomBytes(buf)
		for _, b := range buf {
			if idx := int(b & mask); idx < len(alphabet) {
				result = append(result, alphabet[idx])
				if len(result) == length {
					break
				}
			}
		}
	}
	return string(result)
}

func secureRandomBytes(buf []byte) {
	if _, err := rand.Read(buf); err != nil {
		logrus.Fatal("Unable to generate random bytes")
	}
}
