package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCharacter is returned when decoding input outside of Crockford's alphabet.
var ErrInvalidCharacter = errors.New("invalid crockford base32 character")

const crockfordBase32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ" // Crockford's Base32 alphabet

// EncodeCrockfordB32LC encodes a byte slice using Crockford's Base32 alphabet and returns
// the result in lowercase. Trailing bits are zero padded.
//
//nolint:gosec
func EncodeCrockfordB32LC(input []byte) string {
	var (
		result bytes.Buffer
		bits   = 0
		accum  = 0
	)

	for _, b := range input {
		accum = accum<<8 | int(b)
		bits += 8

		for bits >= 5 {
			bits -= 5
			result.WriteByte(crockfordBase32Alphabet[(accum>>(bits))&0x1F])
		}

		accum &= 1<<bits - 1
	}

	if bits > 0 {
		result.WriteByte(crockfordBase32Alphabet[(accum<<uint(5-bits))&0x1F])
	}

	return strings.ToLower(result.String())
}

// DecodeCrockfordB32LC reverses EncodeCrockfordB32LC. The input must already be
// normalized; padding bits that do not fill a whole byte are dropped.
func DecodeCrockfordB32LC(input string) ([]byte, error) {
	var (
		result = make([]byte, 0, len(input)*5/8)
		bits   = 0
		accum  = 0
	)

	for _, char := range strings.ToUpper(input) {
		idx := strings.IndexRune(crockfordBase32Alphabet, char)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCharacter, char)
		}

		accum = accum<<5 | idx
		bits += 5

		if bits >= 8 {
			bits -= 8
			result = append(result, byte(accum>>bits))
		}

		accum &= 1<<bits - 1
	}

	return result, nil
}

// NormalizeCrockfordB32LC folds human transcription variants into the canonical
// lowercase form: whitespace is dropped, 'O' reads as '0', 'I' and 'L' read as '1'.
func NormalizeCrockfordB32LC(input string) string {
	var result bytes.Buffer

	input = strings.ReplaceAll(input, " ", "")
	input = strings.ToUpper(input)

	for _, char := range input {
		switch char {
		case 'O':
			result.WriteRune('0')
		case 'I', 'L':
			result.WriteRune('1')
		default:
			result.WriteRune(char)
		}
	}

	return strings.ToLower(result.String())
}
