package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credreg/pkg/domain-errors"
)

func TestParseAccountID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects whitespace-only input", func(t *testing.T) {
		_, err := ParseAccountID("   ")
		require.Error(t, err)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		id, err := ParseAccountID("  acct-bob  ")
		require.NoError(t, err)
		assert.Equal(t, AccountID("acct-bob"), id)
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseAccountID(strings.Repeat("x", 129))
		require.Error(t, err)
	})
}

func TestParseOrgID(t *testing.T) {
	t.Run("parses a positive id", func(t *testing.T) {
		id, err := ParseOrgID("42")
		require.NoError(t, err)
		assert.Equal(t, OrgID(42), id)
	})

	t.Run("rejects zero, negatives, and garbage", func(t *testing.T) {
		for _, input := range []string{"0", "-1", "abc", "", "1.5"} {
			_, err := ParseOrgID(input)
			assert.Error(t, err, "input %q", input)
		}
	})
}

func TestParseCertTypeID(t *testing.T) {
	id, err := ParseCertTypeID("7")
	require.NoError(t, err)
	assert.Equal(t, CertTypeID(7), id)

	_, err = ParseCertTypeID("0")
	assert.Error(t, err)
}

func TestMomentRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	m := MomentFromTime(now)
	assert.True(t, m.Time().Equal(now))
	assert.False(t, m.IsZero())
	assert.True(t, Moment(0).IsZero())
}

func TestCredentialKeyString(t *testing.T) {
	key := CredentialKey{CertTypeID: 3, Owner: "acct-bob"}
	assert.Equal(t, "3/acct-bob", key.String())
}
