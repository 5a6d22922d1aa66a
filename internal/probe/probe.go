// Package probe issues paired out-of-band GET requests against the links
// discovered on a route and compares the two outcomes. Many UI failures
// show up as an endpoint that answers differently on the second try;
// determinism is the primary signal here, not mere success.
package probe

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/callmonitor/dashaudit/internal/model"
)

// Config holds settings for the prober.
type Config struct {
	// MaxPerRoute bounds how many links are probed per route.
	MaxPerRoute int
	// Threads is the worker pool size for a route's probe batch.
	Threads int
	// RateLimit caps requests per second across the batch. 0 = unlimited.
	RateLimit int
}

// Prober runs determinism probes with a bounded worker pool.
type Prober struct {
	cfg    Config
	client *http.Client
}

// New creates a Prober. The client is expected to follow redirects.
func New(cfg Config, client *http.Client) *Prober {
	if cfg.MaxPerRoute <= 0 {
		cfg.MaxPerRoute = 20
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}
	return &Prober{cfg: cfg, client: client}
}

const expectedResult = "both GET trials return the same success-or-redirect status"

// Filter keeps links that resolve same-origin against base, dropping
// self-links back to route and intra-page fragments.
func Filter(base *url.URL, route string, links []model.Link) []model.Link {
	var out []model.Link
	seen := make(map[string]struct{})
	for _, l := range links {
		href := strings.TrimSpace(l.Href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(u)
		if abs.Host != base.Host {
			continue
		}
		if abs.Path == route || abs.Path == "" && route == "/" {
			continue
		}
		key := abs.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, model.Link{Label: l.Label, Href: abs.String()})
	}
	return out
}

// ProbeRoute probes up to MaxPerRoute links for route concurrently and
// returns one result per probed link, in input order.
func (p *Prober) ProbeRoute(ctx context.Context, route string, links []model.Link) []model.EndpointElementResult {
	if len(links) > p.cfg.MaxPerRoute {
		links = links[:p.cfg.MaxPerRoute]
	}
	out := make([]model.EndpointElementResult, len(links))

	var (
		rateCh <-chan time.Time
		ticker *time.Ticker
	)
	if p.cfg.RateLimit > 0 {
		ticker = time.NewTicker(time.Second / time.Duration(p.cfg.RateLimit))
		rateCh = ticker.C
		defer ticker.Stop()
	}

	type job struct {
		idx  int
		link model.Link
	}

	jobs := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jb := range jobs {
				if rateCh != nil {
					select {
					case <-ctx.Done():
						return
					case <-rateCh:
					}
				}
				out[jb.idx] = p.probeLink(ctx, route, jb.link)
			}
		}()
	}

	go func() {
		for i, l := range links {
			if ctx.Err() != nil {
				break
			}
			jobs <- job{idx: i, link: l}
		}
		close(jobs)
	}()

	wg.Wait()
	return out
}

// probeLink issues two independent GET trials. Transport failures are
// tolerated as status 0 with the error kept in the note.
func (p *Prober) probeLink(ctx context.Context, route string, link model.Link) model.EndpointElementResult {
	res := model.EndpointElementResult{
		Route:          route,
		ElementLabel:   link.Label,
		Href:           link.Href,
		ExpectedResult: expectedResult,
	}

	var notes []string
	res.FirstStatus, res.FirstMs, notes = p.trial(ctx, link.Href, notes)
	res.SecondStatus, res.SecondMs, notes = p.trial(ctx, link.Href, notes)

	res.Deterministic = res.FirstStatus == res.SecondStatus
	res.Passed = res.Deterministic && res.FirstStatus >= 200 && res.FirstStatus < 400
	res.Note = strings.Join(notes, "; ")
	return res
}

func (p *Prober) trial(ctx context.Context, target string, notes []string) (int, int64, []string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0, append(notes, err.Error())
	}
	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return 0, elapsed, append(notes, err.Error())
	}
	_ = resp.Body.Close()
	return resp.StatusCode, elapsed, notes
}
