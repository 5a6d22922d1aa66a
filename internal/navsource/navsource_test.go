package navsource

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestReadExtractsInternalHrefs(t *testing.T) {
	src := `
		<nav>
			<a href="/voice">Voice</a>
			<a href="/reports?tab=week">Reports</a>
			<a href="https://status.example.com">Status</a>
			<a href="#section">Jump</a>
			<a href="//cdn.example.com/logo">CDN</a>
			<Link to="/settings">Settings</Link>
			{ path: '/voice' }
		</nav>`

	routes, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	has := func(route string) bool {
		for _, r := range routes {
			if r == route {
				return true
			}
		}
		return false
	}
	for _, want := range append(Baseline, "/voice", "/reports", "/settings") {
		if !has(want) {
			t.Fatalf("expected route %q in %v", want, routes)
		}
	}
	if has("#section") || has("//cdn.example.com/logo") {
		t.Fatalf("external or fragment href leaked into %v", routes)
	}

	count := 0
	for _, r := range routes {
		if r == "/voice" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected /voice deduplicated, got %d occurrences", count)
	}
}

func TestReadBaselineOrderFirst(t *testing.T) {
	routes, err := Read(strings.NewReader(`<a href="/zzz">Z</a>`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, b := range Baseline {
		if routes[i] != b {
			t.Fatalf("expected baseline route %q at %d, got %q", b, i, routes[i])
		}
	}
	if routes[len(routes)-1] != "/zzz" {
		t.Fatalf("expected discovered route last, got %v", routes)
	}
}

func TestLoadMissingFileFallsBackToBaseline(t *testing.T) {
	routes := Load(filepath.Join(t.TempDir(), "missing.tsx"))
	if len(routes) != len(Baseline) {
		t.Fatalf("expected baseline fallback, got %v", routes)
	}
	for i, b := range Baseline {
		if routes[i] != b {
			t.Fatalf("expected %q at %d, got %q", b, i, routes[i])
		}
	}
}

func TestLoadEmptyPathUsesBaseline(t *testing.T) {
	routes := Load("")
	if len(routes) != len(Baseline) {
		t.Fatalf("expected baseline for empty path, got %v", routes)
	}
}
