// Package navsource extracts the set of candidate routes to audit from a
// static declaration of the application's navigation links.
package navsource

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

// Baseline routes are always in scope regardless of what the navigation
// declaration yields.
var Baseline = []string{"/", "/login", "/signup", "/onboarding", "/dashboard"}

var hrefRe = regexp.MustCompile(`(?:href|path|to)\s*[:=]\s*["'](/[^"'#?\s]*)["']`)

// Read scans a navigation declaration for internal hrefs and returns the
// baseline set union'd with everything discovered, deduplicated and in
// stable order (baseline first, discoveries in source order).
func Read(r io.Reader) ([]string, error) {
	routes := make([]string, 0, len(Baseline))
	seen := make(map[string]struct{})
	add := func(route string) {
		if _, ok := seen[route]; ok {
			return
		}
		seen[route] = struct{}{}
		routes = append(routes, route)
	}
	for _, b := range Baseline {
		add(b)
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		for _, m := range hrefRe.FindAllStringSubmatch(scanner.Text(), -1) {
			route := m[1]
			if strings.HasPrefix(route, "//") {
				continue
			}
			add(route)
		}
	}
	if err := scanner.Err(); err != nil {
		return routes, err
	}
	return routes, nil
}

// Load reads the declaration file at path. A missing or unreadable file is
// never fatal: the baseline set alone is returned.
func Load(path string) []string {
	if path == "" {
		return append([]string(nil), Baseline...)
	}
	f, err := os.Open(path)
	if err != nil {
		return append([]string(nil), Baseline...)
	}
	defer f.Close()
	routes, err := Read(f)
	if err != nil && len(routes) == 0 {
		return append([]string(nil), Baseline...)
	}
	return routes
}
