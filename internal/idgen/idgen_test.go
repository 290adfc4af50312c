package idgen

import (
	"regexp"
	"testing"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestUUIDNewID(t *testing.T) {
	seen := make(map[string]bool)
	var g Generator = UUID{}
	for range 1000 {
		id := g.NewID()
		if !hexID.MatchString(id) {
			t.Fatalf("NewID() = %q, want 32 hex characters", id)
		}
		if seen[id] {
			t.Fatalf("NewID() repeated %q", id)
		}
		seen[id] = true
	}
}

func TestFunc(t *testing.T) {
	n := 0
	g := Func(func() string { n++; return "fixed" })
	if g.NewID() != "fixed" || n != 1 {
		t.Errorf("Func generator not called as expected")
	}
}
