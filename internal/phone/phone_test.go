package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"0112345678", "254112345678"},
		{"+254712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"0712 345 678", "254712345678"},
		{"+254 (712) 345-678", "254712345678"},
	}

	for _, c := range cases {
		got, err := Normalize(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	for _, in := range []string{"", "12345", "07123456789", "0812345678", "notaphone", "2547x2345678"} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalid, in)
	}
}
