package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneEquivalentForms(t *testing.T) {
	forms := []string{
		"+5511912345678",
		"5511912345678",
		"(11) 91234-5678",
		"11 91234 5678",
		"005511912345678",
	}
	for _, raw := range forms {
		got, err := NormalizePhone(raw)
		require.NoError(t, err, "raw=%q", raw)
		assert.Equal(t, "5511912345678", got, "raw=%q", raw)
	}
}

func TestNormalizePhoneEightDigitSubscriber(t *testing.T) {
	got, err := NormalizePhone("(21) 3344-5566")
	require.NoError(t, err)
	assert.Equal(t, "552133445566", got)
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	once, err := NormalizePhone("(11) 91234-5678")
	require.NoError(t, err)
	twice, err := NormalizePhone(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalizePhoneRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"letters":      "11 ABCD-5678",
		"empty":        "",
		"too short":    "912345",
		"too long":     "55119123456789012",
		"inner plus":   "55+11912345678",
		"punctuation":  "11.91234.5678",
		"only symbols": "()- ",
	}
	for name, raw := range cases {
		_, err := NormalizePhone(raw)
		assert.ErrorIs(t, err, ErrInvalidFormat, name)
	}
}

func TestNormalizeCPF(t *testing.T) {
	got, err := NormalizeCPF("529.982.247-25")
	require.NoError(t, err)
	assert.Equal(t, "52998224725", got)

	// Idempotent over its own output.
	again, err := NormalizeCPF(got)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestNormalizeCPFChecksumFailure(t *testing.T) {
	// Same digits as a valid CPF with the last check digit flipped.
	_, err := NormalizeCPF("529.982.247-26")
	assert.ErrorIs(t, err, ErrInvalidChecksum)

	// Repeated digits pass the naive weighting but are not assignable.
	_, err = NormalizeCPF("111.111.111-11")
	assert.ErrorIs(t, err, ErrInvalidChecksum)
}

func TestNormalizeCPFFormatFailure(t *testing.T) {
	for name, raw := range map[string]string{
		"short":   "5299822472",
		"long":    "529982247251",
		"letters": "529.982.24A-25",
		"empty":   "   ",
	} {
		_, err := NormalizeCPF(raw)
		assert.ErrorIs(t, err, ErrInvalidFormat, name)
	}
}
