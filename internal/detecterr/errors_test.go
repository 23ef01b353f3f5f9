package detecterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	base := Registry("register", "IBAN", ErrRegistryFrozen)
	wrapped := fmt.Errorf("startup: %w", base)

	assert.Equal(t, KindRegistry, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrRegistryFrozen))
	assert.True(t, Is(wrapped, KindRegistry))
	assert.False(t, Is(nil, KindRegistry))
}

func TestKindOfUntyped(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestErrorMessageCarriesContext(t *testing.T) {
	err := PassFailure("context_scoring", ErrPassPanicked)
	require.Contains(t, err.Error(), "pass_execution")
	require.Contains(t, err.Error(), "pass=context_scoring")
	require.Contains(t, err.Error(), "panicked")
}
