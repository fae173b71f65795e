package test

import "math/rand/v2"

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomID returns a lowercase alphanumeric identifier of the given length,
// shaped like catalog product ids.
func RandomID(length int) string {
	if length <= 0 {
		length = 1
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(buf)
}
