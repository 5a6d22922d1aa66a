package model

import "time"

// Link is a same-origin anchor discovered on a loaded route.
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// RouteResult records the outcome of loading a single route.
// Loaded is true iff StatusCode is nil (client-side routing, no HTTP
// transaction observed) or the status is in [200,400).
type RouteResult struct {
	Route          string `json:"route"`
	ExpectedResult string `json:"expected_result"`
	Loaded         bool   `json:"loaded"`
	FinalURL       string `json:"final_url"`
	StatusCode     *int   `json:"status_code"`
	Note           string `json:"note,omitempty"`
}

// NetworkEvent is one captured API request, normalized to method and path.
// A nil Status means the response never arrived before the capture window
// closed; that is a valid terminal state, not an error.
type NetworkEvent struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Status *int   `json:"status"`
}

// ToggleSnapshot is the observable state of a togglable control at one
// instant. Every field except Disabled is nullable: an absent attribute is
// represented as nil, never as an error.
type ToggleSnapshot struct {
	Checked      *bool   `json:"checked"`
	AriaChecked  *string `json:"aria_checked"`
	AriaPressed  *string `json:"aria_pressed"`
	AriaExpanded *string `json:"aria_expanded"`
	Value        *string `json:"value"`
	Disabled     bool    `json:"disabled"`
}

// StateEquals reports whether the boolean-like state fields match.
// Disabled is excluded: it gates clicking, it is not toggle state.
func (s ToggleSnapshot) StateEquals(o ToggleSnapshot) bool {
	return eqBool(s.Checked, o.Checked) &&
		eqStr(s.AriaChecked, o.AriaChecked) &&
		eqStr(s.AriaPressed, o.AriaPressed) &&
		eqStr(s.AriaExpanded, o.AriaExpanded) &&
		eqStr(s.Value, o.Value)
}

func eqBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ToggleAuditResult is the outcome of exercising one toggle through an
// on/off click cycle. Immutable once computed.
type ToggleAuditResult struct {
	Route              string         `json:"route"`
	ElementLabel       string         `json:"element_label"`
	SelectorHint       string         `json:"selector_hint"`
	ExpectedResult     string         `json:"expected_result"`
	Initial            ToggleSnapshot `json:"initial"`
	AfterFirstClick    ToggleSnapshot `json:"after_first_click"`
	AfterSecondClick   ToggleSnapshot `json:"after_second_click"`
	FirstClickNetwork  []NetworkEvent `json:"first_click_network"`
	SecondClickNetwork []NetworkEvent `json:"second_click_network"`
	Deterministic      bool           `json:"deterministic"`
	Passed             bool           `json:"passed"`
	Note               string         `json:"note,omitempty"`
}

// EndpointElementResult is the outcome of probing one same-origin link
// twice for response determinism. Status 0 means the request itself failed
// (transport error) rather than returning a status.
type EndpointElementResult struct {
	Route          string `json:"route"`
	ElementLabel   string `json:"element_label"`
	Href           string `json:"href"`
	ExpectedResult string `json:"expected_result"`
	FirstStatus    int    `json:"first_status"`
	SecondStatus   int    `json:"second_status"`
	FirstMs        int64  `json:"first_ms"`
	SecondMs       int64  `json:"second_ms"`
	Deterministic  bool   `json:"deterministic"`
	Passed         bool   `json:"passed"`
	Note           string `json:"note,omitempty"`
}

// Summary contains the aggregate counters for a run.
type Summary struct {
	RoutesChecked        int `json:"routes_checked"`
	RoutesLoaded         int `json:"routes_loaded"`
	EndpointsChecked     int `json:"endpoints_checked"`
	EndpointsPassed      int `json:"endpoints_passed"`
	TogglesChecked       int `json:"toggles_checked"`
	TogglesPassed        int `json:"toggles_passed"`
	TogglesDeterministic int `json:"toggles_deterministic"`
}

// AuditReport is the top-level aggregate for one audit run.
type AuditReport struct {
	RunID           string                  `json:"run_id"`
	Tool            string                  `json:"tool"`
	Timestamp       time.Time               `json:"timestamp"`
	BaseURL         string                  `json:"base_url"`
	AuthUsed        bool                    `json:"auth_used"`
	RouteResults    []RouteResult           `json:"route_results"`
	EndpointResults []EndpointElementResult `json:"endpoint_results"`
	ToggleResults   []ToggleAuditResult     `json:"toggle_results"`
	Summary         Summary                 `json:"summary"`
}
