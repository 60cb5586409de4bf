package company

import (
	"testing"

	"github.com/vmud/newshub/internal/news"
)

func TestResolveAliasAnyCase(t *testing.T) {
	t.Parallel()

	m := NewMap([]news.Company{
		{ID: 7, CanonicalName: "Acme", Aliases: []string{"Acme", "AcmeCorp"}},
		{ID: 9, CanonicalName: "Globex"},
	})

	for _, mention := range []string{"acmecorp", "ACMECORP", " AcmeCorp ", "Acme"} {
		id, ok := m.Resolve(mention)
		if !ok || id != 7 {
			t.Fatalf("Resolve(%q) = %d, %v; want 7, true", mention, id, ok)
		}
	}
}

func TestResolveSubstringBothDirections(t *testing.T) {
	t.Parallel()

	m := NewMap([]news.Company{
		{ID: 1, CanonicalName: "Qualcomm", Aliases: []string{"Snapdragon"}},
		{ID: 2, CanonicalName: "Best Buy", Aliases: []string{"Geek Squad"}},
	})

	if id, ok := m.Resolve("Qualcomm Technologies Inc."); !ok || id != 1 {
		t.Fatalf("mention containing key: got %d, %v", id, ok)
	}
	if id, ok := m.Resolve("geek"); !ok || id != 2 {
		t.Fatalf("key containing mention: got %d, %v", id, ok)
	}
	if _, ok := m.Resolve("Whirlpool"); ok {
		t.Fatalf("expected unknown company to be unresolved")
	}
	if _, ok := m.Resolve("   "); ok {
		t.Fatalf("expected blank mention to be unresolved")
	}
}

func TestResolvePrefersLongestKey(t *testing.T) {
	t.Parallel()

	m := NewMap([]news.Company{
		{ID: 1, CanonicalName: "Google", Aliases: []string{"Android"}},
		{ID: 2, CanonicalName: "Android Central Media"},
	})

	for i := 0; i < 20; i++ {
		id, ok := m.Resolve("Android Central Media Group reports")
		if !ok || id != 2 {
			t.Fatalf("run %d: got %d, %v; want 2", i, id, ok)
		}
	}
}

func TestNewMapSharedKeyKeepsLowestID(t *testing.T) {
	t.Parallel()

	m := NewMap([]news.Company{
		{ID: 5, CanonicalName: "Galaxy Holdings", Aliases: []string{"Galaxy"}},
		{ID: 3, CanonicalName: "Samsung", Aliases: []string{"Galaxy"}},
	})
	if id, ok := m.Resolve("galaxy"); !ok || id != 3 {
		t.Fatalf("Resolve(galaxy) = %d, %v; want 3", id, ok)
	}
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
}

func TestNilMapResolve(t *testing.T) {
	t.Parallel()

	var m *Map
	if _, ok := m.Resolve("anything"); ok {
		t.Fatalf("nil map should not resolve")
	}
}
