package transport

import (
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple variable", "${TEST_VAR}", "test_value"},
		{"variable with text", "prefix-${TEST_VAR}-suffix", "prefix-test_value-suffix"},
		{"undefined variable", "${UNDEFINED_VAR}", ""},
		{"default for undefined", "${UNDEFINED_VAR:-default}", "default"},
		{"default ignored when defined", "${TEST_VAR:-default}", "test_value"},
		{"no variables", "plain text", "plain text"},
		{"multiple references", "${TEST_VAR} and ${TEST_VAR}", "test_value and test_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnvSlice(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	got := ExpandEnvSlice([]string{"${TEST_VAR}", "plain", "${TEST_VAR:-default}"})
	want := []string{"test_value", "plain", "test_value"}

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExpandEnvMap(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	got := ExpandEnvMap(map[string]string{
		"key1": "${TEST_VAR}",
		"key2": "plain",
		"key3": "${UNDEFINED:-default}",
	})
	want := map[string]string{
		"key1": "test_value",
		"key2": "plain",
		"key3": "default",
	}

	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %q: got %q, want %q", k, got[k], v)
		}
	}
}

func TestBuildEnvMergesConfigOverProcess(t *testing.T) {
	env := BuildEnv(map[string]string{"MY_VAR": "my_value"})

	found := false
	for _, e := range env {
		if e == "MY_VAR=my_value" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected the config entry to appear in the merged environment")
	}

	if len(BuildEnv(nil)) == 0 {
		t.Error("expected a nil config to still return the process environment")
	}
}
