package errors

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCauseAndCode(t *testing.T) {
	err := Wrap(CodeTimeout, context.DeadlineExceeded, "attempt timed out")

	require.True(t, stdErrors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, CodeTimeout, CodeOf(err))
	assert.True(t, RetryableError(err))
	assert.Contains(t, err.Error(), "TIMEOUT")
}

func TestRetryableDefaults(t *testing.T) {
	assert.False(t, RetryableError(New(CodeInvocationFailure, "")))
	assert.False(t, RetryableError(stdErrors.New("plain")))
	assert.False(t, RetryableError(New(CodeTimeout, "", WithRetryable(false))))
}

func TestUnknownCodeFallsBack(t *testing.T) {
	err := New(Code("NOT_REGISTERED"), "")
	assert.Equal(t, "unknown error", err.Message())
	assert.Equal(t, SeverityCritical, err.Severity())
	assert.Equal(t, CodeUnknown, CodeOf(stdErrors.New("plain")))
}

func TestRegisterAndMetadata(t *testing.T) {
	code := Code("TEST_REGISTERED")
	Register(code, Attributes{Message: "registered", Severity: SeverityInfo, Retryable: true})

	err := New(code, "", WithMetadata("skill", "get_company_news"))
	assert.Equal(t, "registered", err.Message())
	assert.True(t, err.Retryable())
	assert.Equal(t, map[string]string{"skill": "get_company_news"}, err.Metadata())
	assert.True(t, stdErrors.Is(Wrap(code, nil, "other"), err))
}
