// Package report reduces the per-route, per-endpoint, and per-toggle
// results into one AuditReport and renders it as the run's two artifacts.
// It is a terminal consumer: it reads result records, it never rewrites
// them.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/callmonitor/dashaudit/internal/model"
)

const toolName = "dashaudit"

// Meta identifies the run the report describes.
type Meta struct {
	BaseURL  string
	AuthUsed bool
	// Timestamp defaults to time.Now; fixed in tests.
	Timestamp time.Time
	// RunID defaults to a fresh uuid; fixed in tests.
	RunID string
}

// Build aggregates the three result collections into an AuditReport.
func Build(meta Meta, routes []model.RouteResult, endpoints []model.EndpointElementResult, toggles []model.ToggleAuditResult) model.AuditReport {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}

	sum := model.Summary{
		RoutesChecked:    len(routes),
		EndpointsChecked: len(endpoints),
		TogglesChecked:   len(toggles),
	}
	for _, r := range routes {
		if r.Loaded {
			sum.RoutesLoaded++
		}
	}
	for _, e := range endpoints {
		if e.Passed {
			sum.EndpointsPassed++
		}
	}
	for _, t := range toggles {
		if t.Passed {
			sum.TogglesPassed++
		}
		if t.Deterministic {
			sum.TogglesDeterministic++
		}
	}

	return model.AuditReport{
		RunID:           meta.RunID,
		Tool:            toolName,
		Timestamp:       meta.Timestamp,
		BaseURL:         meta.BaseURL,
		AuthUsed:        meta.AuthUsed,
		RouteResults:    routes,
		EndpointResults: endpoints,
		ToggleResults:   toggles,
		Summary:         sum,
	}
}

// Sink receives the run's artifacts. Injecting it keeps the engine
// testable without real file I/O.
type Sink interface {
	Write(name string, content []byte) error
}

// DirSink writes artifacts into an evidence directory.
type DirSink struct {
	Dir string
}

func (d DirSink) Write(name string, content []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.Dir, name), content, 0o644)
}

// WriteArtifacts persists the structured and the human-readable forms,
// named with the run start timestamp to avoid collisions across runs.
func WriteArtifacts(sink Sink, rep model.AuditReport) (jsonName, textName string, err error) {
	stamp := rep.Timestamp.UTC().Format("20060102-150405")
	jsonName = fmt.Sprintf("audit-%s.json", stamp)
	textName = fmt.Sprintf("audit-%s.txt", stamp)

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode report: %w", err)
	}
	if err := sink.Write(jsonName, data); err != nil {
		return "", "", fmt.Errorf("write %s: %w", jsonName, err)
	}
	if err := sink.Write(textName, []byte(RenderText(rep))); err != nil {
		return "", "", fmt.Errorf("write %s: %w", textName, err)
	}
	return jsonName, textName, nil
}
