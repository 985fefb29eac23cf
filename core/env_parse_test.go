package core

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_ENV_STR", "hello")
	if got := GetEnvOrDefault("TEST_ENV_STR", "fallback"); got != "hello" {
		t.Errorf("got %q, want hello", got)
	}
	if got := GetEnvOrDefault("TEST_ENV_MISSING", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   int
		want  int
	}{
		{name: "valid", value: "42", def: 7, want: 42},
		{name: "negative", value: "-3", def: 7, want: -3},
		{name: "garbage", value: "abc", def: 7, want: 7},
		{name: "float", value: "1.5", def: 7, want: 7},
		{name: "empty", value: "", def: 7, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_ENV_INT", tt.value)
			}
			if got := ParseIntEnv("TEST_ENV_INT", tt.def); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseFloat64Env(t *testing.T) {
	t.Setenv("TEST_ENV_FLOAT", "7.5")
	if got := ParseFloat64Env("TEST_ENV_FLOAT", 1.0); got != 7.5 {
		t.Errorf("got %v, want 7.5", got)
	}
	t.Setenv("TEST_ENV_FLOAT", "nope")
	if got := ParseFloat64Env("TEST_ENV_FLOAT", 1.0); got != 1.0 {
		t.Errorf("got %v, want default 1.0", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
		{" true ", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_ENV_BOOL", tt.value)
			if got := ParseBoolEnv("TEST_ENV_BOOL", tt.def); got != tt.want {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("TEST_ENV_DUR", "90")
	if got := ParseDurationEnv("TEST_ENV_DUR", 30); got != 90*time.Second {
		t.Errorf("got %v, want 90s", got)
	}
	if got := ParseDurationEnv("TEST_ENV_DUR_MISSING", 30); got != 30*time.Second {
		t.Errorf("got %v, want 30s default", got)
	}
}
