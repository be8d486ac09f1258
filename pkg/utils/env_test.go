package utils

import (
	"os"
	"testing"
	"time"
)

func TestGetStringOrDefault(t *testing.T) {
	os.Unsetenv("LINGMEET_TEST_STR")
	if got := GetStringOrDefault("LINGMEET_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("expected 'fallback', got '%s'", got)
	}

	os.Setenv("LINGMEET_TEST_STR", "value")
	defer os.Unsetenv("LINGMEET_TEST_STR")
	if got := GetStringOrDefault("LINGMEET_TEST_STR", "fallback"); got != "value" {
		t.Errorf("expected 'value', got '%s'", got)
	}
}

func TestGetIntOrDefault(t *testing.T) {
	os.Unsetenv("LINGMEET_TEST_INT")
	if got := GetIntOrDefault("LINGMEET_TEST_INT", 42); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	os.Setenv("LINGMEET_TEST_INT", "7")
	defer os.Unsetenv("LINGMEET_TEST_INT")
	if got := GetIntOrDefault("LINGMEET_TEST_INT", 42); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestGetBoolOrDefault(t *testing.T) {
	os.Unsetenv("LINGMEET_TEST_BOOL")
	if got := GetBoolOrDefault("LINGMEET_TEST_BOOL", true); !got {
		t.Error("expected default true")
	}

	os.Setenv("LINGMEET_TEST_BOOL", "false")
	defer os.Unsetenv("LINGMEET_TEST_BOOL")
	if got := GetBoolOrDefault("LINGMEET_TEST_BOOL", true); got {
		t.Error("expected false from env")
	}
}

func TestGetDurationOrDefault(t *testing.T) {
	os.Unsetenv("LINGMEET_TEST_DUR")
	if got := GetDurationOrDefault("LINGMEET_TEST_DUR", 5*time.Second); got != 5*time.Second {
		t.Errorf("expected 5s, got %v", got)
	}

	os.Setenv("LINGMEET_TEST_DUR", "250ms")
	defer os.Unsetenv("LINGMEET_TEST_DUR")
	if got := GetDurationOrDefault("LINGMEET_TEST_DUR", 5*time.Second); got != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", got)
	}
}
