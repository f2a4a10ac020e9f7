package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndError(t *testing.T) {
	err := New(KindInvalidArg, "bad value %d", 42)
	assert.Equal(t, KindInvalidArg, err.Kind)
	assert.Contains(t, err.Error(), "bad value 42")
	assert.Contains(t, err.Error(), string(KindInvalidArg))
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := Wrap(KindDriverError, cause, "driver call failed")

	assert.Contains(t, err.Error(), "underlying failure")
	assert.Equal(t, cause, err.Unwrap())
}

func TestIs(t *testing.T) {
	err := New(KindDeviceLocked, "device is locked")
	assert.True(t, Is(err, KindDeviceLocked))
	assert.False(t, Is(err, KindDeviceDisabled))
	assert.False(t, Is(fmt.Errorf("plain error"), KindDeviceLocked))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindHTTPNotFound, http.StatusNotFound},
		{KindProfileNotFound, http.StatusNotFound},
		{KindHTTPConflict, http.StatusConflict},
		{KindDeviceLocked, http.StatusLocked},
		{KindDeviceDisabled, http.StatusLocked},
		{KindInvalidArg, http.StatusBadRequest},
		{KindBadConfig, http.StatusBadRequest},
		{KindMethodNotAllowed, http.StatusMethodNotAllowed},
		{KindDriverError, http.StatusBadGateway},
		{KindRemoteServerDown, http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(string(c.kind), func(t *testing.T) {
			assert.Equal(t, c.want, HTTPStatus(New(c.kind, "x")))
		})
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("not an *Error")))
}

func TestMultiError(t *testing.T) {
	m := NewMultiError("device setup")
	require.Nil(t, m.Err())
	assert.False(t, m.HasErrors())

	m.Add(nil)
	assert.False(t, m.HasErrors())

	m.Add(New(KindInvalidArg, "bad device 1"))
	m.Add(New(KindInvalidArg, "bad device 2"))

	require.True(t, m.HasErrors())
	err := m.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 error(s) for: device setup")
	assert.Contains(t, err.Error(), "bad device 1")
	assert.Contains(t, err.Error(), "bad device 2")
}
