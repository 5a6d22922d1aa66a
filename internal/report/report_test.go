package report_test

import (
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/callmonitor/dashaudit/internal/model"
	"github.com/callmonitor/dashaudit/internal/report"
)

func intPtr(n int) *int { return &n }

func sampleReport() model.AuditReport {
	meta := report.Meta{
		BaseURL:   "http://app.test",
		AuthUsed:  true,
		Timestamp: time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
		RunID:     "run-1",
	}
	routes := []model.RouteResult{
		{Route: "/dashboard", Loaded: true, FinalURL: "http://app.test/dashboard", StatusCode: intPtr(200)},
		{Route: "/broken", Loaded: false, Note: "navigation timeout"},
	}
	endpoints := []model.EndpointElementResult{
		{Route: "/dashboard", Href: "http://app.test/reports", FirstStatus: 200, SecondStatus: 200, Deterministic: true, Passed: true},
		{Route: "/dashboard", Href: "http://app.test/flaky", FirstStatus: 200, SecondStatus: 500, Deterministic: false, Passed: false},
	}
	toggles := []model.ToggleAuditResult{
		{Route: "/dashboard", ElementLabel: "record", Deterministic: true, Passed: true},
		{Route: "/dashboard", ElementLabel: "survey", Deterministic: true, Passed: false, Note: "no observable effect from either click"},
	}
	return report.Build(meta, routes, endpoints, toggles)
}

func TestBuildSummaryCounts(t *testing.T) {
	rep := sampleReport()
	want := model.Summary{
		RoutesChecked:        2,
		RoutesLoaded:         1,
		EndpointsChecked:     2,
		EndpointsPassed:      1,
		TogglesChecked:       2,
		TogglesPassed:        1,
		TogglesDeterministic: 2,
	}
	if rep.Summary != want {
		t.Fatalf("summary = %+v, want %+v", rep.Summary, want)
	}
	if rep.RunID != "run-1" || rep.Tool != "dashaudit" {
		t.Fatalf("meta not carried: %+v", rep)
	}
}

func TestBuildDefaultsRunID(t *testing.T) {
	rep := report.Build(report.Meta{BaseURL: "http://app.test"}, nil, nil, nil)
	if rep.RunID == "" {
		t.Fatalf("expected generated run id")
	}
	if rep.Timestamp.IsZero() {
		t.Fatalf("expected default timestamp")
	}
}

// memSink records artifact writes for inspection.
type memSink struct {
	files map[string][]byte
}

func (m *memSink) Write(name string, content []byte) error {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = content
	return nil
}

func TestWriteArtifacts(t *testing.T) {
	rep := sampleReport()
	sink := &memSink{}
	jsonName, textName, err := report.WriteArtifacts(sink, rep)
	if err != nil {
		t.Fatalf("WriteArtifacts error: %v", err)
	}
	if jsonName != "audit-20260829-103000.json" {
		t.Fatalf("unexpected json artifact name %q", jsonName)
	}
	if textName != "audit-20260829-103000.txt" {
		t.Fatalf("unexpected text artifact name %q", textName)
	}

	var decoded model.AuditReport
	if err := json.Unmarshal(sink.files[jsonName], &decoded); err != nil {
		t.Fatalf("json artifact does not decode: %v", err)
	}
	if decoded.Summary != rep.Summary {
		t.Fatalf("decoded summary %+v != %+v", decoded.Summary, rep.Summary)
	}
	if len(decoded.RouteResults) != 2 {
		t.Fatalf("expected 2 route results, got %d", len(decoded.RouteResults))
	}

	text := string(sink.files[textName])
	for _, sub := range []string{"ROUTES", "ENDPOINTS", "TOGGLES", "/dashboard", "navigation timeout", "auth used: true"} {
		if !strings.Contains(text, sub) {
			t.Fatalf("text artifact missing %q:\n%s", sub, text)
		}
	}
}

func TestRenderTextNilStatus(t *testing.T) {
	rep := report.Build(report.Meta{Timestamp: time.Unix(0, 0).UTC()},
		[]model.RouteResult{{Route: "/spa", Loaded: true}}, nil, nil)
	text := report.RenderText(rep)
	if !strings.Contains(text, "/spa") {
		t.Fatalf("missing route row:\n%s", text)
	}
	// Client-side routed pages have no document status; rendered as "-".
	if !strings.Contains(text, " - ") && !strings.Contains(text, " -\n") {
		t.Fatalf("expected dash for nil status:\n%s", text)
	}
}
