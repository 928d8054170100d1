package pathutil

import "testing"

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "/", true},
		{"/", "/", true},
		{"a/b", "/a/b", true},
		{"/a/b/", "/a/b", true},
		{"//a///b", "/a/b", true},
		{"/a/./b", "", false},
		{"/a/../b", "", false},
	}
	for _, tt := range tests {
		got, ok := Clean(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Clean(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParentBase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		parent string
		base   string
	}{
		{"/", "", "/"},
		{"/a", "/", "a"},
		{"/a/b", "/a", "b"},
		{"/a/b/c.txt", "/a/b", "c.txt"},
	}
	for _, tt := range tests {
		if got := Parent(tt.in); got != tt.parent {
			t.Errorf("Parent(%q) = %q, want %q", tt.in, got, tt.parent)
		}
		if got := Base(tt.in); got != tt.base {
			t.Errorf("Base(%q) = %q, want %q", tt.in, got, tt.base)
		}
	}
}

func TestJoinRel(t *testing.T) {
	t.Parallel()

	if got := Join("/", "a"); got != "/a" {
		t.Errorf("Join(/, a) = %q", got)
	}
	if got := Join("/a", "b"); got != "/a/b" {
		t.Errorf("Join(/a, b) = %q", got)
	}
	if got := Rel("/a/b"); got != "a/b" {
		t.Errorf("Rel(/a/b) = %q", got)
	}
	if got := Rel("/"); got != "." {
		t.Errorf("Rel(/) = %q", got)
	}
	for _, bad := range []string{"", ".", "..", "a/b"} {
		if ValidName(bad) {
			t.Errorf("ValidName(%q) = true", bad)
		}
	}
}
