package blob

import "testing"

func TestLikePatternEscapesWildcards(t *testing.T) {
	cases := []struct {
		prefix string
		want   string
	}{
		{"logs/2025-07-20/", `logs/2025-07-20/%`},
		// Map types with spaces are sanitized to underscores; those must not
		// act as single-character wildcards.
		{"logs/2025-07-20/World_Map", `logs/2025-07-20/World\_Map%`},
		{"a%b", `a\%b%`},
		{`a\b`, `a\\b%`},
		{"", `%`},
	}
	for _, tc := range cases {
		if got := likePattern(tc.prefix); got != tc.want {
			t.Fatalf("likePattern(%q) = %q, want %q", tc.prefix, got, tc.want)
		}
	}
}
