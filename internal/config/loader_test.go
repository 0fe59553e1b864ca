package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_EXPAND_HOST", "redis.internal")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "set variable",
			in:   "host: ${TEST_EXPAND_HOST:localhost}",
			want: "host: redis.internal",
		},
		{
			name: "unset with default",
			in:   "port: ${TEST_EXPAND_MISSING:6379}",
			want: "port: 6379",
		},
		{
			name: "unset with empty default",
			in:   "password: ${TEST_EXPAND_MISSING:}",
			want: "password: ",
		},
		{
			name: "unset without default keeps placeholder",
			in:   "key: ${TEST_EXPAND_MISSING}",
			want: "key: ${TEST_EXPAND_MISSING}",
		},
		{
			name: "multiple placeholders",
			in:   "${TEST_EXPAND_HOST:x}:${TEST_EXPAND_MISSING:6379}",
			want: "redis.internal:6379",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandEnv(tt.in); got != tt.want {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
