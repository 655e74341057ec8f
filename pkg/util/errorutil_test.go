package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	domainErr := ToDomainError(NewTicketNotFound("t-1"))
	require.NotNil(t, domainErr)
	assert.Equal(t, CodeTicketNotFound, domainErr.Code)
	assert.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)
	assert.Equal(t, "t-1", domainErr.Details["ticketId"])

	// Wrapped domain errors keep their classification.
	wrapped := fmt.Errorf("add credential: %w", NewRemoteFailure(errors.New("dial tcp: refused")))
	domainErr = ToDomainError(wrapped)
	assert.Equal(t, CodeRemoteFailure, domainErr.Code)

	// Arbitrary errors map to internal.
	domainErr = ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, domainErr.Code)

	assert.Nil(t, ToDomainError(nil))
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewSelfBanForbidden(), CodeSelfBanForbidden))
	assert.False(t, HasCode(NewSelfBanForbidden(), CodeNotAuthenticated))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestRemoteFailureUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewRemoteFailure(cause)
	assert.ErrorIs(t, err, cause)
}
