package pagination_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulimanbank/bankcore/internal/utils/pagination"
)

func TestSequenceTokenRoundTrip(t *testing.T) {
	for _, seq := range []int64{0, 1, 42, 1 << 40} {
		token := pagination.EncodeSequenceToken(seq)
		got, err := pagination.DecodeSequenceToken(token)
		require.NoError(t, err)
		assert.Equal(t, seq, got)
	}
}

func TestDecodeSequenceTokenRejectsGarbage(t *testing.T) {
	_, err := pagination.DecodeSequenceToken("not-base64!!")
	assert.Error(t, err)

	// Valid base64 but not a number.
	_, err = pagination.DecodeSequenceToken("aGVsbG8=")
	assert.Error(t, err)
}

func TestDateBasedTokenRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	token := pagination.EncodeDateBasedToken(now)
	got, err := pagination.DecodeDateBasedToken(token)
	require.NoError(t, err)
	assert.True(t, now.Equal(got))
}
