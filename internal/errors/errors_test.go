package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryFunctionsSetTransientCorrectly(t *testing.T) {
	cause := errors.New("boom")

	transient := []*ProcessingError{
		NewOCRTransientError("doc-1", cause),
		NewExtractionTransientError("doc-1", 2, cause),
		NewInfrastructureTransientError("doc-1", cause),
	}
	for _, e := range transient {
		assert.True(t, e.Transient, "%s should be transient", e.Code)
	}

	permanent := []*ProcessingError{
		NewDocumentProcessingError("doc-1", cause),
		NewExtractionFatalError("doc-1", cause),
		NewPersistenceTotalError("doc-1", 3),
		NewRetriesExhaustedError("doc-1", 4),
	}
	for _, e := range permanent {
		assert.False(t, e.Transient, "%s should not be transient", e.Code)
	}
}

func TestProcessingErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	perr := NewOCRTransientError("doc-1", cause)

	require.ErrorIs(t, perr, cause)
	assert.Contains(t, perr.Error(), "caused by: root cause")
}

func TestProcessingErrorToMapRedactsNothingButCarriesDetails(t *testing.T) {
	perr := NewExtractionTransientError("doc-1", 2, errors.New("rate limit"))
	m := perr.ToMap()

	assert.Equal(t, string(ErrorExtractionTransient), m["error_code"])
	assert.Equal(t, true, m["transient"])
	assert.Equal(t, 2, m["attempt"])
	assert.Equal(t, "rate limit", m["cause"])
}

func TestIsTransientDefaultsTrueForUnrecognizedErrors(t *testing.T) {
	assert.True(t, IsTransient(errors.New("connection reset")))
	assert.False(t, IsTransient(nil))
}

func TestIsTransientUnwrapsWrappedProcessingError(t *testing.T) {
	perr := NewExtractionFatalError("doc-1", errors.New("schema mismatch"))
	wrapped := fmt.Errorf("router: %w", perr)

	assert.False(t, IsTransient(wrapped))

	retryable := NewOCRTransientError("doc-1", errors.New("503"))
	assert.True(t, IsTransient(fmt.Errorf("pipeline: %w", retryable)))
}
