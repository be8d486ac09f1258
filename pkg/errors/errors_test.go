package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeDeviceBusy, "camera is busy")
	if err.Error() != "DEVICE_BUSY: camera is busy" {
		t.Errorf("unexpected error string: %s", err.Error())
	}

	wrapped := err.WithCause(errors.New("timeout"))
	if wrapped.Error() != "DEVICE_BUSY: camera is busy (caused by: timeout)" {
		t.Errorf("unexpected error string with cause: %s", wrapped.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := WrapError(ErrCodeSubstitutionFailed, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := NewAppError(ErrCodeSubstitutionFailed, "replace track failed").
		WithDetails("connection_id", "conn-1")

	if err.Details["connection_id"] != "conn-1" {
		t.Errorf("expected connection_id detail, got %v", err.Details)
	}
}

func TestHasCode(t *testing.T) {
	err := NewAppError(ErrCodeSessionAlreadyActive, "session already active")

	if !HasCode(err, ErrCodeSessionAlreadyActive) {
		t.Error("HasCode should match the code")
	}
	if HasCode(err, ErrCodeSessionNotActive) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(errors.New("plain"), ErrCodeSessionNotActive) {
		t.Error("HasCode should not match a plain error")
	}

	// 包装后也应能匹配
	wrapped := fmt.Errorf("start: %w", err)
	if !HasCode(wrapped, ErrCodeSessionAlreadyActive) {
		t.Error("HasCode should match through wrapping")
	}
}

func TestIsDeviceError(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeDeviceNotFound, true},
		{ErrCodeDevicePermissionDenied, true},
		{ErrCodeDeviceBusy, true},
		{ErrCodeShareCancelled, false},
		{ErrCodeSessionNotActive, false},
	}

	for _, c := range cases {
		err := NewAppError(c.code, "test")
		if got := IsDeviceError(err); got != c.want {
			t.Errorf("IsDeviceError(%s) = %v, want %v", c.code, got, c.want)
		}
	}

	if IsDeviceError(errors.New("plain")) {
		t.Error("plain error should not be a device error")
	}
}
