package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/callmonitor/dashaudit/internal/banner"
	"github.com/callmonitor/dashaudit/internal/browser"
	"github.com/callmonitor/dashaudit/internal/httpclient"
	"github.com/callmonitor/dashaudit/internal/logging"
	"github.com/callmonitor/dashaudit/internal/navsource"
	"github.com/callmonitor/dashaudit/internal/probe"
	"github.com/callmonitor/dashaudit/internal/report"
	"github.com/callmonitor/dashaudit/internal/runner"
	"github.com/callmonitor/dashaudit/internal/session"
)

type headerList []string

func (h *headerList) String() string { return strings.Join(*h, "; ") }

func (h *headerList) Set(value string) error {
	*h = append(*h, value)
	return nil
}

type options struct {
	baseURL      string
	navFile      string
	evidenceDir  string
	cookie       string
	headers      headerList
	timeout      time.Duration
	routeTimeout time.Duration
	settle       time.Duration
	retries      int
	threads      int
	rateLimit    int
	maxLinks     int
	maxToggles   int
	minRoutes    int
	headless     bool
	insecure     bool
	silent       bool
}

func main() {
	opts := parseFlags()
	if !opts.silent {
		banner.PrintBanner()
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.baseURL, "u", "", "Base URL of the target dashboard")
	flag.StringVar(&opts.navFile, "nav", "", "Navigation declaration file to scan for routes")
	flag.StringVar(&opts.evidenceDir, "out", "evidence", "Evidence directory for report artifacts")
	flag.StringVar(&opts.cookie, "cookie", "", "Cookie header for endpoint probes")
	flag.Var(&opts.headers, "H", "Extra HTTP header for endpoint probes (repeatable)")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Per-request timeout for endpoint probes")
	flag.DurationVar(&opts.routeTimeout, "route-timeout", 20*time.Second, "Per-route navigation timeout")
	flag.DurationVar(&opts.settle, "settle", 1200*time.Millisecond, "Settle interval after each toggle click")
	flag.IntVar(&opts.retries, "retries", 0, "HTTP retry count (keep 0: retries mask nondeterminism)")
	flag.IntVar(&opts.threads, "t", 4, "Probe threads per route")
	flag.IntVar(&opts.rateLimit, "rl", 0, "Probe rate limit (requests per second)")
	flag.IntVar(&opts.maxLinks, "max-links", 20, "Max links probed per route")
	flag.IntVar(&opts.maxToggles, "max-toggles", 15, "Max toggles exercised per route")
	flag.IntVar(&opts.minRoutes, "min-routes", 1, "Minimum routes checked for a successful run")
	flag.BoolVar(&opts.headless, "headless", true, "Run the browser headless")
	flag.BoolVar(&opts.insecure, "insecure", false, "Skip TLS verification")
	flag.BoolVar(&opts.silent, "silent", false, "Suppress console output")
	flag.Parse()
	return opts
}

func run(opts options) error {
	if opts.baseURL == "" {
		return errors.New("-u (base URL) is required")
	}
	if _, err := url.Parse(opts.baseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if opts.threads <= 0 {
		return fmt.Errorf("-t must be greater than zero (got %d)", opts.threads)
	}
	if opts.settle <= 0 {
		return fmt.Errorf("-settle must be > 0 (got %s)", opts.settle)
	}

	logger := logging.Default()

	routes := navsource.Load(opts.navFile)
	logger.Info("route set assembled", "routes", len(routes), "nav_file", opts.navFile)

	headerMap, err := toHeader(opts.headers)
	if err != nil {
		return err
	}

	ctx := context.Background()
	chrome, err := browser.New(ctx, browser.Config{
		BaseURL:      opts.baseURL,
		Headless:     opts.headless,
		RouteTimeout: opts.routeTimeout,
		Settle:       opts.settle,
		MaxToggles:   opts.maxToggles,
		Log:          logger,
	})
	if err != nil {
		return err
	}
	defer chrome.Close()

	authUsed := session.Bootstrap(ctx, chrome, session.FromEnv(), logger)

	client := httpclient.New(httpclient.Config{
		Timeout:  opts.timeout,
		Headers:  headerMap,
		Cookie:   opts.cookie,
		Insecure: opts.insecure,
		Retries:  opts.retries,
	})
	prober := probe.New(probe.Config{
		MaxPerRoute: opts.maxLinks,
		Threads:     opts.threads,
		RateLimit:   opts.rateLimit,
	}, client)

	runr := runner.New(runner.Config{
		BaseURL:      opts.baseURL,
		AuthUsed:     authUsed,
		RouteTimeout: opts.routeTimeout,
		Settle:       opts.settle,
	}, chrome, prober, logger)

	rep := runr.Run(ctx, routes)

	if !opts.silent {
		report.PrintConsole(rep)
	}

	jsonName, textName, err := report.WriteArtifacts(report.DirSink{Dir: opts.evidenceDir}, rep)
	if err != nil {
		return err
	}
	logger.Info("artifacts written", "dir", opts.evidenceDir, "json", jsonName, "text", textName)

	if rep.Summary.RoutesChecked < opts.minRoutes {
		return fmt.Errorf("only %d route(s) checked, expected at least %d", rep.Summary.RoutesChecked, opts.minRoutes)
	}
	return nil
}

func toHeader(headers headerList) (http.Header, error) {
	hdr := make(http.Header)
	for _, h := range headers {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header %q (expected Key: Value)", h)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			return nil, fmt.Errorf("invalid header %q (empty key)", h)
		}
		hdr.Add(key, value)
	}
	return hdr, nil
}
