package errutil_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"authchat/internal/errutil"
)

func TestConstructorsCarryCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		msg  string
	}{
		{"validation", errutil.Validation("Message is required"), errutil.CodeValidation, "Message is required"},
		{"conflict", errutil.Conflict("User already exists"), errutil.CodeConflict, "User already exists"},
		{"not found", errutil.NotFound("User not found"), errutil.CodeNotFound, "User not found"},
		{"auth", errutil.Auth(errutil.CodeInvalidCredentials, "Invalid credentials"), errutil.CodeInvalidCredentials, "Invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errutil.AssertErrorCode(t, tt.err, tt.code)
			assert.Equal(t, tt.msg, tt.err.Error())
			assert.True(t, errutil.IsPublic(tt.err))
		})
	}
}

func TestExternalServiceIsNotPublic(t *testing.T) {
	err := errutil.ExternalService("mail", errors.New("dial tcp: connection refused"))
	errutil.AssertErrorCode(t, err, errutil.CodeExternalService)
	assert.False(t, errutil.IsPublic(err))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Empty(t, errutil.Code(errors.New("boom")))
	assert.Empty(t, errutil.Code(nil))
	assert.False(t, errutil.IsPublic(errors.New("boom")))
}

func TestLogError(t *testing.T) {
	t.Run("oops error carries code and context", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		logger := zap.New(core)

		err := errutil.ExternalService("chat", errors.New("timeout"))
		errutil.LogError(logger, "chat call failed", err)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "chat call failed", entry.Message)
		fields := entry.ContextMap()
		assert.Equal(t, errutil.CodeExternalService, fields["code"])
		assert.Contains(t, fields["error"], "timeout")
	})

	t.Run("standard error", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		logger := zap.New(core)

		errutil.LogError(logger, "failed", errors.New("standard error"))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "standard error", logs.All()[0].ContextMap()["error"])
	})
}
