package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyOrdering(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Check())
	assert.Equal(t, 0.95, p.Confidence(TierChecksumVerified))
	assert.Equal(t, 0.2, p.Confidence(TierKnownFalsePositive))
}

func TestPolicyOverrides(t *testing.T) {
	p, err := DefaultPolicy().WithOverrides(map[string]float64{"checksum_verified": 0.99})
	require.NoError(t, err)
	assert.Equal(t, 0.99, p.Confidence(TierChecksumVerified))
	assert.Equal(t, 0.95, DefaultPolicy().Confidence(TierChecksumVerified))

	_, err = DefaultPolicy().WithOverrides(map[string]float64{"weak_pattern": 0.99})
	assert.Error(t, err)

	_, err = DefaultPolicy().WithOverrides(map[string]float64{"bogus": 0.5})
	assert.Error(t, err)

	_, err = DefaultPolicy().WithOverrides(map[string]float64{"checksum_verified": 1.5})
	assert.Error(t, err)
}

func TestAcceptReject(t *testing.T) {
	p := DefaultPolicy()
	ok := p.Accept(TierFormatVerified)
	assert.True(t, ok.Valid)
	assert.Equal(t, 0.9, ok.Confidence)

	bad := p.Reject(TierValidationFailed, "checksum mismatch")
	assert.False(t, bad.Valid)
	assert.Equal(t, 0.3, bad.Confidence)
	assert.Equal(t, "checksum mismatch", bad.Reason)
}
