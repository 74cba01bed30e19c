package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeQueryExecutionFailed, 3},
		{ErrCodeCacheFailed, 3},
		{ErrCodeEventPublishFailed, 3},
		{ErrCodeQueryTimeout, 2},
		{ErrCodeAlreadyClaimed, 0},
		{ErrCodeBusinessNotFound, 0},
		{ErrCodeInsufficientData, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetRetryCount(tt.code))
			assert.Equal(t, tt.expected > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("not found codes share one BPMN code", func(t *testing.T) {
		b := ConvertToBPMNError(NewBusinessNotFoundError("b-1"))
		c := ConvertToBPMNError(NewClaimNotFoundError("c-1"))
		assert.Equal(t, "NOT_FOUND", b.Code)
		assert.Equal(t, "NOT_FOUND", c.Code)
		assert.Equal(t, "BUSINESS_NOT_FOUND", b.ErrorVariables["originalErrorCode"])
		assert.Equal(t, 0, b.Retries)
	})

	t.Run("unmapped code passes through with retries", func(t *testing.T) {
		b := ConvertToBPMNError(NewCacheFailedError("ranking:austin:plumbing:overall", fmt.Errorf("i/o timeout")))
		assert.Equal(t, "RANKING_CACHE_FAILED", b.Code)
		assert.True(t, b.Retryable)
		assert.Equal(t, 3, b.Retries)
	})

	t.Run("metadata becomes error variables", func(t *testing.T) {
		stdErr := NewAlreadyClaimedError("b-9").WithMetadata("claimId", "c-9")
		vars := ConvertToBPMNError(stdErr).ToErrorVariables()
		assert.Equal(t, "c-9", vars["claimId"])
		assert.Equal(t, "ALREADY_CLAIMED", vars["errorCode"])
		assert.Equal(t, false, vars["retryable"])
	})
}

func TestNormalize(t *testing.T) {
	wrapped := fmt.Errorf("approve claim: %w", NewAlreadyClaimedError("b-1"))
	assert.Equal(t, ErrCodeAlreadyClaimed, Normalize(wrapped).Code)

	plain := Normalize(stderrors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeAlreadyClaimed:           "CLAIM",
		ErrCodeClaimNotFound:            "CLAIM",
		ErrCodeBusinessNotFound:         "NOT_FOUND",
		ErrCodeQueryTimeout:             "DATABASE",
		ErrCodeDatabaseConnectionFailed: "DATABASE",
		ErrCodeCacheFailed:              "CACHE",
		ErrCodeSearchIndexFailed:        "SEARCH",
		ErrCodeEventPublishFailed:       "NOTIFICATION",
		ErrCodePartialBatchFailure:      "SCORING",
		ErrCodeInvalidInput:             "VALIDATION",
		"SOMETHING_ELSE":                "OTHER",
	}
	for code, expected := range tests {
		assert.Equal(t, expected, GetErrorCategory(code), string(code))
	}
}

func TestStandardError_Error(t *testing.T) {
	err := NewInvalidInputError("city is required")
	assert.Equal(t, "StandardError[INVALID_INPUT]: Job variables failed validation", err.Error())
}
