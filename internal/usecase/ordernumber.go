package usecase

import (
	"crypto/rand"
	"fmt"
	"io"
	"unicode"
)

// OrderNumberGenerator allocates candidate order numbers. Uniqueness is
// enforced by the store.
type OrderNumberGenerator interface {
	Next() (string, error)
}

// RandomOrderNumbers produces numeric order numbers of fixed length. The
// first digit is never zero and the last one is a Luhn check digit.
type RandomOrderNumbers struct {
	length int
	rand   io.Reader
}

// NewRandomOrderNumbers constructs generator. length includes the check digit.
func NewRandomOrderNumbers(length int) *RandomOrderNumbers {
	return &RandomOrderNumbers{length: length, rand: rand.Reader}
}

func (g *RandomOrderNumbers) Next() (string, error) {
	if g.length < 2 {
		return "", fmt.Errorf("order number length %d is too short", g.length)
	}

	buf := make([]byte, g.length-1)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("read random order number: %w", err)
	}
	digits := make([]byte, g.length)
	for i, b := range buf {
		if i == 0 {
			digits[i] = '1' + b%9
			continue
		}
		digits[i] = '0' + b%10
	}
	digits[len(digits)-1] = luhnCheckDigit(digits[:len(digits)-1])
	return string(digits), nil
}

func luhnCheckDigit(payload []byte) byte {
	var sum int
	alt := true
	for i := len(payload) - 1; i >= 0; i-- {
		digit := int(payload[i] - '0')
		if alt {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		alt = !alt
	}
	return byte('0' + (10-sum%10)%10)
}

// ValidateOrderNumber checks order number using Luhn algorithm.
func ValidateOrderNumber(number string) bool {
	if number == "" {
		return false
	}

	var sum int
	var alt bool
	for i := len(number) - 1; i >= 0; i-- {
		r := rune(number[i])
		if !unicode.IsDigit(r) {
			return false
		}
		digit := int(r - '0')
		if alt {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		alt = !alt
	}

	return sum%10 == 0
}
