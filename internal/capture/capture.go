// Package capture correlates asynchronous network traffic with the UI
// action that triggered it. A Correlator is attached for exactly one
// capture window; requests are joined to their responses by request ID so
// concurrent in-flight requests cannot cross-match.
package capture

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"

	"github.com/callmonitor/dashaudit/internal/model"
)

// DefaultScope is the URL marker that puts a request in scope.
const DefaultScope = "/api/"

// Correlator buffers in-scope request/response pairs observed during one
// capture window. Safe for concurrent use: cdproto events are delivered on
// the browser event goroutine while the audit goroutine reads results.
type Correlator struct {
	mu     sync.Mutex
	scope  string
	order  []network.RequestID
	events map[network.RequestID]*model.NetworkEvent
}

// NewCorrelator returns a Correlator scoped to URLs containing marker.
// An empty marker falls back to DefaultScope.
func NewCorrelator(marker string) *Correlator {
	if marker == "" {
		marker = DefaultScope
	}
	return &Correlator{
		scope:  marker,
		events: make(map[network.RequestID]*model.NetworkEvent),
	}
}

// Observe feeds one browser event into the correlator. Events that are not
// network request/response pairs, or whose URL is out of scope, are ignored.
// A response without a matching buffered request is dropped: it belongs to
// a request issued before this window opened.
func (c *Correlator) Observe(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if !strings.Contains(e.Request.URL, c.scope) {
			return
		}
		c.mu.Lock()
		if _, ok := c.events[e.RequestID]; !ok {
			c.order = append(c.order, e.RequestID)
			c.events[e.RequestID] = &model.NetworkEvent{
				Method: e.Request.Method,
				Path:   normalizePath(e.Request.URL),
			}
		}
		c.mu.Unlock()
	case *network.EventResponseReceived:
		c.mu.Lock()
		if buf, ok := c.events[e.RequestID]; ok && buf.Status == nil {
			status := int(e.Response.Status)
			buf.Status = &status
		}
		c.mu.Unlock()
	}
}

// Events returns the captured events in observation order. Requests whose
// response never arrived keep a nil status.
func (c *Correlator) Events() []model.NetworkEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.NetworkEvent, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.events[id])
	}
	return out
}

func normalizePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return u.Path
}

// Signature reduces a set of events to an order-independent fingerprint:
// method+path+status per event, sorted and joined. Two capture windows are
// deterministic with respect to each other iff their signatures match.
func Signature(events []model.NetworkEvent) string {
	parts := make([]string, 0, len(events))
	for _, ev := range events {
		status := "-"
		if ev.Status != nil {
			status = strconv.Itoa(*ev.Status)
		}
		parts = append(parts, ev.Method+" "+ev.Path+" "+status)
	}
	sort.Strings(parts)
	return strings.Join(parts, "\n")
}
