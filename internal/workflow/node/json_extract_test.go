package node

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "markdown fence",
			in:   "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "leading prose",
			in:   "Here is the script:\n{\"a\":1}",
			want: `{"a":1}`,
		},
		{
			name: "trailing prose",
			in:   "{\"a\":1}\nHope this helps!",
			want: `{"a":1}`,
		},
		{
			name: "array",
			in:   "noise [1,2,3] noise",
			want: `[1,2,3]`,
		},
		{
			name: "nested object",
			in:   `{"a":{"b":[1,2]},"c":"x"}`,
			want: `{"a":{"b":[1,2]},"c":"x"}`,
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "no json at all",
			in:   "just some prose",
			want: "just some prose",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSONObject(tt.in)
			if got != tt.want {
				t.Errorf("ExtractJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
