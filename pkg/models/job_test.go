package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_ExitCode(t *testing.T) {
	assert.Equal(t, 0, Succeeded(SuccessMessage).ExitCode())
	assert.Equal(t, 1, Failed(errors.New("boom")).ExitCode())
}

func TestFailed_UsesErrorText(t *testing.T) {
	o := Failed(errors.New("failed to download notebook: 404 Not Found"))

	assert.Equal(t, OutcomeFailed, o.Status)
	assert.Equal(t, "failed to download notebook: 404 Not Found", o.Message)
	assert.False(t, o.IsSuccess())
}

func TestFailed_NilError(t *testing.T) {
	o := Failed(nil)

	assert.Equal(t, OutcomeFailed, o.Status)
	assert.NotEmpty(t, o.Message)
}

func TestJobRequest_HasParameters(t *testing.T) {
	assert.False(t, JobRequest{}.HasParameters())
	assert.True(t, JobRequest{Parameters: `{"a": 1}`}.HasParameters())
}
