package encoding_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mkrupp/micropost/internal/util/encoding"
)

func TestEncodeCrockfordB32LC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "empty input", input: []byte{}, want: ""},
		{name: "single byte", input: []byte{0xF5}, want: "ym"},
		{name: "three bytes", input: []byte{0xF5, 0x3A, 0x58}, want: "ymx5g"},
		{name: "five bytes", input: []byte{0xF5, 0x3A, 0x58, 0x9B, 0xC4}, want: "ymx5h6y4"},
		{name: "all zero bytes", input: []byte{0, 0, 0, 0}, want: "0000000"},
		{name: "all ones", input: []byte{255, 255, 255, 255}, want: "zzzzzzr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := encoding.EncodeCrockfordB32LC(tt.input)
			if got != tt.want {
				t.Errorf("EncodeCrockfordB32LC() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeCrockfordB32LC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr error
	}{
		{name: "empty input", input: "", want: []byte{}},
		{name: "single byte", input: "ym", want: []byte{0xF5}},
		{name: "five bytes", input: "ymx5h6y4", want: []byte{0xF5, 0x3A, 0x58, 0x9B, 0xC4}},
		{name: "uppercase input", input: "YMX5G", want: []byte{0xF5, 0x3A, 0x58}},
		{name: "excluded letter u", input: "ymu5g", wantErr: encoding.ErrInvalidCharacter},
		{name: "punctuation", input: "ym-5g", wantErr: encoding.ErrInvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := encoding.DecodeCrockfordB32LC(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeCrockfordB32LC() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err == nil && !bytes.Equal(got, tt.want) {
				t.Errorf("DecodeCrockfordB32LC() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestDecodeReversesEncode(t *testing.T) {
	t.Parallel()

	input := []byte{0x01, 0x92, 0x5f, 0x00, 0xaa, 0x7c, 0x70, 0x11, 0x80, 0x3e, 0xde, 0xad, 0xbe, 0xef, 0x42, 0x99}

	decoded, err := encoding.DecodeCrockfordB32LC(encoding.EncodeCrockfordB32LC(input))
	if err != nil {
		t.Fatalf("DecodeCrockfordB32LC() error = %v", err)
	}

	if !bytes.Equal(decoded, input) {
		t.Errorf("round trip = %x, want %x", decoded, input)
	}
}

func TestNormalizeCrockfordB32LC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "uppercase", input: "ABC123DEF", want: "abc123def"},
		{name: "with whitespace", input: "  ABC 123 DEF  ", want: "abc123def"},
		{name: "O to 0", input: "ABCO123ODEF", want: "abc01230def"},
		{name: "I and L to 1", input: "ABCI123LDEF", want: "abc11231def"},
		{name: "all substitutions", input: "OIL OIL", want: "011011"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := encoding.NormalizeCrockfordB32LC(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeCrockfordB32LC() = %q, want %q", got, tt.want)
			}
		})
	}
}
