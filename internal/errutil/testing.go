package errutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertErrorCode asserts that err carries the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Error(t, err)
	assert.Equal(t, code, Code(err), "unexpected error code for %v", err)
}
