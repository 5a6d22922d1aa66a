package report

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/callmonitor/dashaudit/internal/model"
)

var (
	passColor = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.FgHiBlack)
)

// StatusSprint colorizes a status code: 2xx/3xx green, 4xx/5xx red,
// unknown gray.
func StatusSprint(status int) string {
	switch {
	case status == 0:
		return dimColor.Sprint("—")
	case status >= 200 && status < 400:
		return passColor.Sprint(status)
	default:
		return failColor.Sprint(status)
	}
}

func passFail(ok bool) string {
	if ok {
		return passColor.Sprint("PASS")
	}
	return failColor.Sprint("FAIL")
}

// PrintConsole writes the per-result run summary to stdout.
func PrintConsole(rep model.AuditReport) {
	for _, r := range rep.RouteResults {
		status := 0
		if r.StatusCode != nil {
			status = *r.StatusCode
		}
		fmt.Printf("[route] %s %s loaded=%t", r.Route, StatusSprint(status), r.Loaded)
		if r.Note != "" {
			fmt.Printf(" %s", dimColor.Sprint(r.Note))
		}
		fmt.Println()
	}
	for _, e := range rep.EndpointResults {
		fmt.Printf("[endpoint] %s %s/%s %s\n", e.Href, StatusSprint(e.FirstStatus), StatusSprint(e.SecondStatus), passFail(e.Passed))
	}
	for _, t := range rep.ToggleResults {
		fmt.Printf("[toggle] %s (%s) det=%t %s", t.ElementLabel, t.Route, t.Deterministic, passFail(t.Passed))
		if t.Note != "" {
			fmt.Printf(" %s", warnColor.Sprint(t.Note))
		}
		fmt.Println()
	}

	s := rep.Summary
	fmt.Printf("\nroutes %d/%d loaded | endpoints %d/%d | toggles %d/%d (%d deterministic)\n",
		s.RoutesLoaded, s.RoutesChecked, s.EndpointsPassed, s.EndpointsChecked,
		s.TogglesPassed, s.TogglesChecked, s.TogglesDeterministic)
}
