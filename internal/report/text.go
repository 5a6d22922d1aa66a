package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/callmonitor/dashaudit/internal/model"
)

// RenderText produces the human-readable tabular form of the report.
func RenderText(rep model.AuditReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s audit report\n", rep.Tool)
	fmt.Fprintf(&b, "run:       %s\n", rep.RunID)
	fmt.Fprintf(&b, "started:   %s\n", rep.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "base url:  %s\n", rep.BaseURL)
	fmt.Fprintf(&b, "auth used: %t\n\n", rep.AuthUsed)

	fmt.Fprintf(&b, "summary: routes %d/%d loaded | endpoints %d/%d passed | toggles %d/%d passed (%d deterministic)\n\n",
		rep.Summary.RoutesLoaded, rep.Summary.RoutesChecked,
		rep.Summary.EndpointsPassed, rep.Summary.EndpointsChecked,
		rep.Summary.TogglesPassed, rep.Summary.TogglesChecked,
		rep.Summary.TogglesDeterministic)

	b.WriteString("ROUTES\n")
	fmt.Fprintf(&b, "  %-28s %-8s %-7s %s\n", "route", "loaded", "status", "note")
	for _, r := range rep.RouteResults {
		fmt.Fprintf(&b, "  %-28s %-8t %-7s %s\n", r.Route, r.Loaded, statusString(r.StatusCode), r.Note)
	}

	b.WriteString("\nENDPOINTS\n")
	fmt.Fprintf(&b, "  %-28s %-5s %-5s %-6s %-6s %s\n", "href", "1st", "2nd", "det", "pass", "route")
	for _, e := range rep.EndpointResults {
		fmt.Fprintf(&b, "  %-28s %-5d %-5d %-6t %-6t %s\n", trim(e.Href, 28), e.FirstStatus, e.SecondStatus, e.Deterministic, e.Passed, e.Route)
	}

	b.WriteString("\nTOGGLES\n")
	fmt.Fprintf(&b, "  %-24s %-6s %-6s %-4s %-4s %s\n", "label", "det", "pass", "net1", "net2", "note")
	for _, t := range rep.ToggleResults {
		fmt.Fprintf(&b, "  %-24s %-6t %-6t %-4d %-4d %s\n", trim(t.ElementLabel, 24), t.Deterministic, t.Passed, len(t.FirstClickNetwork), len(t.SecondClickNetwork), t.Note)
	}
	return b.String()
}

func statusString(status *int) string {
	if status == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *status)
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
