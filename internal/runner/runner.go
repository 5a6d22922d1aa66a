// Package runner walks the discovered route set and streams every result
// into the report builder. Routes are audited strictly in sequence: the
// browser tab's navigation state must not be raced.
package runner

import (
	"context"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/callmonitor/dashaudit/internal/model"
	"github.com/callmonitor/dashaudit/internal/probe"
	"github.com/callmonitor/dashaudit/internal/report"
	"github.com/callmonitor/dashaudit/internal/toggle"
)

// Browser is the surface the engine drives. *browser.Chrome satisfies it;
// tests substitute fakes.
type Browser interface {
	Load(ctx context.Context, route string) (finalURL string, status *int, err error)
	Links(ctx context.Context) ([]model.Link, error)
	Toggles(ctx context.Context) ([]toggle.Handle, error)
	WithCapture(ctx context.Context, action func(ctx context.Context) error) ([]model.NetworkEvent, error)
}

// Config holds the run settings.
type Config struct {
	BaseURL      string
	AuthUsed     bool
	RouteTimeout time.Duration
	Settle       time.Duration
}

// Runner coordinates one audit run.
type Runner struct {
	cfg     Config
	browser Browser
	prober  *probe.Prober
	logger  *log.Logger
}

// New creates a Runner.
func New(cfg Config, b Browser, p *probe.Prober, logger *log.Logger) *Runner {
	if cfg.RouteTimeout <= 0 {
		cfg.RouteTimeout = 20 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{cfg: cfg, browser: b, prober: p, logger: logger}
}

const routeExpectation = "route loads with a success-or-redirect document status"

// Run audits every route and returns the aggregated report. A single route
// failure never aborts the run.
func (r *Runner) Run(ctx context.Context, routes []string) model.AuditReport {
	base, baseErr := url.Parse(r.cfg.BaseURL)

	var (
		routeResults    []model.RouteResult
		endpointResults []model.EndpointElementResult
		toggleResults   []model.ToggleAuditResult
	)
	exerciser := &toggle.Exerciser{Capture: r.browser, Settle: r.cfg.Settle}

	for _, route := range routes {
		if ctx.Err() != nil {
			r.logger.Warn("run cancelled", "remaining", route)
			break
		}

		rr := r.loadRoute(ctx, route)
		routeResults = append(routeResults, rr)
		if !rr.Loaded {
			r.logger.Warn("route not loaded, skipping probes", "route", route, "note", rr.Note)
			continue
		}
		r.logger.Info("route loaded", "route", route, "final_url", rr.FinalURL)

		if baseErr == nil {
			if links, err := r.browser.Links(ctx); err != nil {
				r.logger.Warn("link discovery failed", "route", route, "err", err)
			} else {
				inScope := probe.Filter(base, route, links)
				endpointResults = append(endpointResults, r.prober.ProbeRoute(ctx, route, inScope)...)
			}
		}

		handles, err := r.browser.Toggles(ctx)
		if err != nil {
			r.logger.Warn("toggle discovery failed", "route", route, "err", err)
			continue
		}
		for _, h := range handles {
			toggleResults = append(toggleResults, exerciser.Exercise(ctx, route, h))
		}
	}

	return report.Build(report.Meta{
		BaseURL:  r.cfg.BaseURL,
		AuthUsed: r.cfg.AuthUsed,
	}, routeResults, endpointResults, toggleResults)
}

// loadRoute runs one bounded navigation and classifies the outcome. The
// per-route deadline keeps a hung route from consuming the whole run.
func (r *Runner) loadRoute(ctx context.Context, route string) model.RouteResult {
	rr := model.RouteResult{Route: route, ExpectedResult: routeExpectation}

	rctx, cancel := context.WithTimeout(ctx, r.cfg.RouteTimeout)
	defer cancel()

	finalURL, status, err := r.browser.Load(rctx, route)
	rr.FinalURL = finalURL
	rr.StatusCode = status
	if err != nil {
		rr.Loaded = false
		rr.Note = err.Error()
		return rr
	}
	rr.Loaded = status == nil || (*status >= 200 && *status < 400)
	return rr
}
