package scoring

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"score_20_75": 40}`,
			want: `{"score_20_75": 40}`,
		},
		{
			name: "prose wrapped",
			in:   "Here is the evaluation:\n{\"score_20_75\": 40}\nHope this helps!",
			want: `{"score_20_75": 40}`,
		},
		{
			name: "code fence",
			in:   "```json\n{\"score_20_75\": 40}\n```",
			want: `{"score_20_75": 40}`,
		},
		{
			name: "nested braces are kept greedy",
			in:   `result {"a": {"b": 1}, "c": [{"d": 2}]} end`,
			want: `{"a": {"b": 1}, "c": [{"d": 2}]}`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := extractJSON(c.in)
			if err != nil {
				t.Fatalf("extractJSON returned %v", err)
			}
			if got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestExtractJSONErrors(t *testing.T) {
	for _, in := range []string{"", "no braces here", "only open {", "} reversed {"} {
		if _, err := extractJSON(in); !errors.Is(err, ErrNoJSON) {
			t.Errorf("extractJSON(%q) err = %v, want ErrNoJSON", in, err)
		}
	}
}
