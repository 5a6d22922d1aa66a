// Package browser implements the opaque browser capability the audit
// engine drives: navigation, anchor/toggle discovery, scoped network
// capture, and login/signup form driving, all over chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/callmonitor/dashaudit/internal/capture"
	"github.com/callmonitor/dashaudit/internal/model"
	"github.com/callmonitor/dashaudit/internal/session"
	"github.com/callmonitor/dashaudit/internal/toggle"
)

// Config holds browser settings.
type Config struct {
	BaseURL      string
	Headless     bool
	RouteTimeout time.Duration
	Settle       time.Duration
	// MaxToggles bounds toggle discovery per route.
	MaxToggles int
	// Scope is the URL marker for in-scope network capture.
	Scope string
	Log   *log.Logger
}

// Chrome is a single browser tab shared by the whole run. Navigation state
// is not safe to race, so callers audit routes strictly in sequence.
type Chrome struct {
	cfg         Config
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// New launches a headless browser and opens the audit tab.
func New(ctx context.Context, cfg Config) (*Chrome, error) {
	if cfg.RouteTimeout <= 0 {
		cfg.RouteTimeout = 20 * time.Second
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 1200 * time.Millisecond
	}
	if cfg.MaxToggles <= 0 {
		cfg.MaxToggles = 15
	}
	if cfg.Log == nil {
		cfg.Log = log.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			cfg.Log.Debug(fmt.Sprintf("browser: "+format, args...))
		}),
	)

	c := &Chrome{cfg: cfg, ctx: tabCtx, cancel: tabCancel, allocCancel: allocCancel}
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		c.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return c, nil
}

// Close tears the browser down.
func (c *Chrome) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

// Load navigates to route under the per-route timeout and classifies the
// result. Waiting stops at document-interactive; full network idle would
// hang on long-polling pages.
func (c *Chrome) Load(ctx context.Context, route string) (finalURL string, status *int, err error) {
	target := strings.TrimRight(c.cfg.BaseURL, "/") + route

	lctx, lcancel := context.WithTimeout(c.bounded(ctx), c.cfg.RouteTimeout)
	defer lcancel()

	var (
		mu        sync.Mutex
		docStatus *int
	)
	listenCtx, detach := context.WithCancel(lctx)
	defer detach()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			mu.Lock()
			if docStatus == nil {
				s := int(e.Response.Status)
				docStatus = &s
			}
			mu.Unlock()
		}
	})

	err = chromedp.Run(lctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
	)
	detach()

	mu.Lock()
	status = docStatus
	mu.Unlock()
	if err != nil {
		return finalURL, status, err
	}
	return finalURL, status, nil
}

const linksJS = `(() => {
	const out = [];
	for (const a of document.querySelectorAll('a[href]')) {
		const r = a.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) continue;
		out.push({
			label: (a.getAttribute('aria-label') || a.textContent || '').trim().slice(0, 80),
			href: a.getAttribute('href') || '',
		});
	}
	return out;
})()`

// Links enumerates the visible anchors on the current page. Origin
// filtering happens in the prober, not here.
func (c *Chrome) Links(ctx context.Context) ([]model.Link, error) {
	var links []model.Link
	if err := chromedp.Run(c.bounded(ctx), chromedp.Evaluate(linksJS, &links)); err != nil {
		return nil, err
	}
	return links, nil
}

// togglesJS tags each candidate with a stable data attribute so later
// snapshots and clicks address exactly the element that was discovered.
const togglesJS = `((max) => {
	const sel = 'input[type="checkbox"], [role="switch"], [aria-checked], [aria-pressed], [aria-expanded]';
	const out = [];
	let n = 0;
	for (const el of document.querySelectorAll(sel)) {
		if (out.length >= max) break;
		const r = el.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) continue;
		if (!el.hasAttribute('data-dashaudit-id')) {
			el.setAttribute('data-dashaudit-id', 'da-' + (n++));
		}
		const attr = (name) => el.hasAttribute(name) ? el.getAttribute(name) : null;
		out.push({
			tag: el.tagName.toLowerCase(),
			type: (el.getAttribute('type') || '').toLowerCase(),
			role: (el.getAttribute('role') || '').toLowerCase(),
			label: (el.getAttribute('aria-label') || el.id || el.getAttribute('name') || el.textContent || '').trim().slice(0, 60),
			selector: '[data-dashaudit-id="' + el.getAttribute('data-dashaudit-id') + '"]',
			aria_checked: attr('aria-checked'),
			aria_pressed: attr('aria-pressed'),
			aria_expanded: attr('aria-expanded'),
		});
	}
	return out;
})(%d)`

// Toggles discovers the togglable controls on the current page and returns
// a live handle per control that the classifier accepts.
func (c *Chrome) Toggles(ctx context.Context) ([]toggle.Handle, error) {
	var descs []toggle.Descriptor
	js := fmt.Sprintf(togglesJS, c.cfg.MaxToggles)
	if err := chromedp.Run(c.bounded(ctx), chromedp.Evaluate(js, &descs)); err != nil {
		return nil, err
	}
	var handles []toggle.Handle
	for _, d := range descs {
		if _, ok := toggle.Classify(d); !ok {
			continue
		}
		handles = append(handles, &elementHandle{chrome: c, desc: d})
	}
	return handles, nil
}

// WithCapture runs action inside a scoped capture window: listeners attach
// immediately before the action and detach on every exit path, so two
// consecutive windows never bleed into each other. Captured events are
// returned even when the action fails.
func (c *Chrome) WithCapture(ctx context.Context, action func(ctx context.Context) error) ([]model.NetworkEvent, error) {
	corr := capture.NewCorrelator(c.cfg.Scope)
	listenCtx, detach := context.WithCancel(c.ctx)
	defer detach()
	chromedp.ListenTarget(listenCtx, corr.Observe)

	err := action(c.bounded(ctx))
	detach()
	return corr.Events(), err
}

// bounded merges the caller's deadline onto the tab context.
func (c *Chrome) bounded(ctx context.Context) context.Context {
	if dl, ok := ctx.Deadline(); ok {
		bctx, cancel := context.WithDeadline(c.ctx, dl)
		go func() {
			<-bctx.Done()
			cancel()
		}()
		return bctx
	}
	return c.ctx
}

// SignIn drives the login form. Success means the browser left the login
// route.
func (c *Chrome) SignIn(ctx context.Context, creds session.Credentials) error {
	return c.submitAuthForm(ctx, "/login", creds)
}

// SignUp drives the signup form with throwaway credentials.
func (c *Chrome) SignUp(ctx context.Context, creds session.Credentials) error {
	return c.submitAuthForm(ctx, "/signup", creds)
}

func (c *Chrome) submitAuthForm(ctx context.Context, route string, creds session.Credentials) error {
	if _, _, err := c.Load(ctx, route); err != nil {
		return fmt.Errorf("load %s: %w", route, err)
	}

	actx, acancel := context.WithTimeout(c.ctx, c.cfg.RouteTimeout)
	defer acancel()
	var location string
	err := chromedp.Run(actx,
		chromedp.WaitVisible(`input[type="email"], input[name="email"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="email"], input[name="email"]`, creds.Email, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="password"], input[name="password"]`, creds.Password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(c.cfg.Settle),
		chromedp.Location(&location),
	)
	if err != nil {
		return err
	}
	if strings.Contains(location, route) {
		return errors.New("still on " + route + " after submit")
	}
	return nil
}

// elementHandle addresses one discovered toggle via its tagged selector.
type elementHandle struct {
	chrome *Chrome
	desc   toggle.Descriptor
}

func (h *elementHandle) Describe() toggle.Descriptor { return h.desc }

const snapshotJS = `((sel) => {
	const el = document.querySelector(sel);
	if (!el) return null;
	const attr = (name) => el.hasAttribute(name) ? el.getAttribute(name) : null;
	return {
		checked: el.tagName === 'INPUT' ? el.checked : null,
		aria_checked: attr('aria-checked'),
		aria_pressed: attr('aria-pressed'),
		aria_expanded: attr('aria-expanded'),
		value: attr('value'),
		disabled: !!(el.disabled || attr('aria-disabled') === 'true'),
	};
})(%q)`

// Snapshot reads the toggle's observable state without mutating it.
func (h *elementHandle) Snapshot(ctx context.Context) (model.ToggleSnapshot, error) {
	var snap *model.ToggleSnapshot
	js := fmt.Sprintf(snapshotJS, h.desc.Selector)
	if err := chromedp.Run(h.chrome.bounded(ctx), chromedp.Evaluate(js, &snap)); err != nil {
		return model.ToggleSnapshot{}, err
	}
	if snap == nil {
		return model.ToggleSnapshot{}, errors.New("element detached: " + h.desc.Selector)
	}
	return *snap, nil
}

// Click clicks the toggle.
func (h *elementHandle) Click(ctx context.Context) error {
	return chromedp.Run(h.chrome.bounded(ctx), chromedp.Click(h.desc.Selector, chromedp.ByQuery))
}
