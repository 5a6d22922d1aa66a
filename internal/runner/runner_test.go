package runner

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/callmonitor/dashaudit/internal/httpclient"
	"github.com/callmonitor/dashaudit/internal/model"
	"github.com/callmonitor/dashaudit/internal/probe"
	"github.com/callmonitor/dashaudit/internal/toggle"
)

// fakeBrowser scripts per-route load outcomes, links and toggles.
type fakeBrowser struct {
	statuses map[string]*int
	loadErr  map[string]error
	links    map[string][]model.Link
	toggles  map[string][]toggle.Handle

	loaded       []string
	linkCalls    []string
	current      string
	captureCalls int
}

func (f *fakeBrowser) Load(ctx context.Context, route string) (string, *int, error) {
	f.loaded = append(f.loaded, route)
	f.current = route
	if err := f.loadErr[route]; err != nil {
		return "", nil, err
	}
	return "http://app.test" + route, f.statuses[route], nil
}

func (f *fakeBrowser) Links(ctx context.Context) ([]model.Link, error) {
	f.linkCalls = append(f.linkCalls, f.current)
	return f.links[f.current], nil
}

func (f *fakeBrowser) Toggles(ctx context.Context) ([]toggle.Handle, error) {
	return f.toggles[f.current], nil
}

func (f *fakeBrowser) WithCapture(ctx context.Context, action func(ctx context.Context) error) ([]model.NetworkEvent, error) {
	f.captureCalls++
	return nil, action(ctx)
}

type staticToggle struct {
	label string
	snaps []model.ToggleSnapshot
	idx   int
}

func (s *staticToggle) Describe() toggle.Descriptor {
	return toggle.Descriptor{Tag: "input", Type: "checkbox", Label: s.label}
}

func (s *staticToggle) Snapshot(ctx context.Context) (model.ToggleSnapshot, error) {
	if s.idx >= len(s.snaps) {
		return s.snaps[len(s.snaps)-1], nil
	}
	snap := s.snaps[s.idx]
	s.idx++
	return snap, nil
}

func (s *staticToggle) Click(ctx context.Context) error { return nil }

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func testRunner(b Browser) *Runner {
	client := httpclient.New(httpclient.Config{Timeout: 2 * time.Second})
	p := probe.New(probe.Config{}, client)
	return New(Config{
		BaseURL:      "http://app.test",
		AuthUsed:     false,
		RouteTimeout: 2 * time.Second,
		Settle:       time.Millisecond,
	}, b, p, quietLogger())
}

func TestRunOneRouteResultPerRoute(t *testing.T) {
	fb := &fakeBrowser{
		statuses: map[string]*int{"/dashboard": intPtr(200), "/voice": intPtr(200)},
		loadErr:  map[string]error{"/broken": errors.New("net::ERR_CONNECTION_REFUSED")},
	}
	rep := testRunner(fb).Run(context.Background(), []string{"/dashboard", "/broken", "/voice"})

	if len(rep.RouteResults) != 3 {
		t.Fatalf("expected exactly one RouteResult per route, got %d", len(rep.RouteResults))
	}
	seen := make(map[string]int)
	for _, rr := range rep.RouteResults {
		seen[rr.Route]++
	}
	for _, route := range []string{"/dashboard", "/broken", "/voice"} {
		if seen[route] != 1 {
			t.Fatalf("route %s has %d results", route, seen[route])
		}
	}
	if rep.Summary.RoutesChecked != 3 || rep.Summary.RoutesLoaded != 2 {
		t.Fatalf("unexpected summary %+v", rep.Summary)
	}
}

func TestRunFailedRouteSkipsProbes(t *testing.T) {
	fb := &fakeBrowser{
		loadErr: map[string]error{"/broken": errors.New("timeout")},
		links:   map[string][]model.Link{"/broken": {{Href: "/should-not-probe"}}},
		toggles: map[string][]toggle.Handle{"/broken": {&staticToggle{label: "x", snaps: []model.ToggleSnapshot{{}}}}},
	}
	rep := testRunner(fb).Run(context.Background(), []string{"/broken"})

	if len(fb.linkCalls) != 0 {
		t.Fatalf("links must not be enumerated on a failed route")
	}
	if len(rep.EndpointResults) != 0 || len(rep.ToggleResults) != 0 {
		t.Fatalf("failed route must produce no dependent results: %+v", rep)
	}
	rr := rep.RouteResults[0]
	if rr.Loaded || rr.Note != "timeout" {
		t.Fatalf("expected not-loaded with note, got %+v", rr)
	}
}

func TestRunLoadedInvariant(t *testing.T) {
	fb := &fakeBrowser{
		statuses: map[string]*int{
			"/ok":       intPtr(200),
			"/redirect": intPtr(302),
			"/missing":  intPtr(404),
			"/spa":      nil,
		},
	}
	rep := testRunner(fb).Run(context.Background(), []string{"/ok", "/redirect", "/missing", "/spa"})

	for _, rr := range rep.RouteResults {
		wantLoaded := rr.StatusCode == nil || (*rr.StatusCode >= 200 && *rr.StatusCode < 400)
		if rr.Loaded != wantLoaded {
			t.Fatalf("loaded invariant violated for %+v", rr)
		}
	}
}

func TestRunEndToEndWithCheckboxToggle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	fb := &fakeBrowser{
		statuses: map[string]*int{"/dashboard": intPtr(200)},
		links:    map[string][]model.Link{"/dashboard": {{Label: "Reports", Href: srv.URL + "/reports"}}},
		toggles: map[string][]toggle.Handle{"/dashboard": {
			&staticToggle{label: "record", snaps: []model.ToggleSnapshot{
				{Checked: boolPtr(false)},
				{Checked: boolPtr(true)},
				{Checked: boolPtr(false)},
			}},
		}},
	}

	client := httpclient.New(httpclient.Config{Timeout: 2 * time.Second})
	p := probe.New(probe.Config{}, client)
	r := New(Config{
		BaseURL: srv.URL,
		Settle:  time.Millisecond,
	}, fb, p, quietLogger())
	rep := r.Run(context.Background(), []string{"/dashboard"})

	if len(rep.EndpointResults) != 1 || !rep.EndpointResults[0].Passed {
		t.Fatalf("expected one passing endpoint result: %+v", rep.EndpointResults)
	}
	if len(rep.ToggleResults) != 1 {
		t.Fatalf("expected one toggle result, got %d", len(rep.ToggleResults))
	}
	tr := rep.ToggleResults[0]
	if !tr.Deterministic || !tr.Passed {
		t.Fatalf("checkbox round trip must pass: %+v", tr)
	}
	if fb.captureCalls != 2 {
		t.Fatalf("expected 2 capture windows, got %d", fb.captureCalls)
	}
}
