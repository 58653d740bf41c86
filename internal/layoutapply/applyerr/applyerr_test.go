package applyerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWithStatusCode(t *testing.T) {
	err := Newf(E40003, 504, "request to %s timed out", "host")
	assert.Equal(t, "E40003: request to host timed out (status 504)", err.Error())
	assert.Equal(t, E40003, err.Code)
	assert.Equal(t, 504, err.StatusCode)
}

func TestErrorWithoutStatusCode(t *testing.T) {
	err := New(E40019, "unexpected column count")
	assert.Equal(t, "E40019: unexpected column count", err.Error())
	assert.Zero(t, err.StatusCode)
}

func TestErrorSatisfiesErrorInterface(t *testing.T) {
	var err error = New(E40001, "bad request")
	assert.EqualError(t, err, "E40001: bad request")
}
