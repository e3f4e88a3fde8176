package cache

import "testing"

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"product:search:*", "product:search:red shoes", true},
		{"product:search:*", "product:search:", true},
		{"product:search:*", "product:42", false},
		{"product:name:*", "product:name:a:b", true},
		{"product:?", "product:1", true},
		{"product:?", "product:12", false},
		{"*", "anything", true},
		{"a.b", "a.b", true},
		{"a.b", "axb", false},
		{"user:session:[1]", "user:session:[1]", true},
	}
	for _, tt := range tests {
		if got := CompilePattern(tt.pattern).Match(tt.key); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.key, got, tt.want)
		}
	}
}

func TestPattern_Namespace(t *testing.T) {
	tests := []struct {
		pattern string
		ns      string
		ok      bool
	}{
		{"product:search:*", "product", true},
		{"user:*", "user", true},
		{"prod*", "", false},
		{"*", "", false},
	}
	for _, tt := range tests {
		ns, ok := CompilePattern(tt.pattern).Namespace()
		if ns != tt.ns || ok != tt.ok {
			t.Errorf("Namespace(%q) = %q,%v want %q,%v", tt.pattern, ns, ok, tt.ns, tt.ok)
		}
	}
}
