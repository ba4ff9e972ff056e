package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineError_ErrorString(t *testing.T) {
	err := SchemaValidationCause("startTime", "unparsable start time", fmt.Errorf("bad layout"))
	assert.Contains(t, err.Error(), "SCHEMA_VALIDATION")
	assert.Contains(t, err.Error(), `"startTime"`)
	assert.Contains(t, err.Error(), "bad layout")
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := TransientModel("model down", cause)
	assert.True(t, stderrors.Is(err, cause))
}

func TestRetryable(t *testing.T) {
	assert.True(t, TransientModel("x", nil).Retryable())
	assert.False(t, ModelAuthOrRequest("x", nil).Retryable())
	assert.False(t, EmptyCompletion().Retryable())
}

func TestIsCodeAndCodeOf(t *testing.T) {
	err := NotFound("session", "abc")
	assert.True(t, IsCode(err, ErrCodeNotFound))
	assert.False(t, IsCode(err, ErrCodeInvalidArgument))
	assert.False(t, IsCode(nil, ErrCodeNotFound))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, ErrCodeNotFound, CodeOf(wrapped, ErrCodeTransientModel))
	assert.Equal(t, ErrCodeTransientModel, CodeOf(fmt.Errorf("plain"), ErrCodeTransientModel))
}
