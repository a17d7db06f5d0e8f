package domain

import "testing"

func TestContentHash(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"a", "97"},
		{"ab", "3105"},
		{"hello", "99162322"},
		// Débordement 32 bits signé.
		{"hello world", "1794106052"},
		// Hors BMP: deux unités UTF-16.
		{"😀", "1772899"},
	}
	for _, c := range cases {
		if got := ContentHash(c.in); got != c.want {
			t.Fatalf("ContentHash(%q): want %s, got %s", c.in, c.want, got)
		}
	}
}

func TestContentHash_DiffersOnSmallEdit(t *testing.T) {
	if ContentHash("Price: 42") == ContentHash("Price: 43") {
		t.Fatalf("expected different hashes")
	}
}
