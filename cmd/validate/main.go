// Command validate checks a flow map dataset before it is served. It loads
// the CSV files the service would load, reports invalid and unknown
// locations, and verifies that the cluster hierarchy and flow aggregation
// built from the data are consistent at every zoom level.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -locations data/mock/locations.csv \
//	  -flows data/mock/flows.csv \
//	  -properties data/mock/properties.csv \
//	  -query 'v=31,-100,6&c=1'
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/couchcryptid/flowmap-core/internal/cluster"
	"github.com/couchcryptid/flowmap-core/internal/dataset"
	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/observability"
	"github.com/couchcryptid/flowmap-core/internal/pipeline"
	"github.com/couchcryptid/flowmap-core/internal/state"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	locations := flag.String("locations", "", "path to the locations CSV")
	flows := flag.String("flows", "", "path to the flows CSV")
	properties := flag.String("properties", "", "optional path to the properties CSV")
	query := flag.String("query", "", "optional shareable state string to check")
	flag.Parse()

	if *locations == "" || *flows == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*locations, *flows, *properties, *query); code != 0 {
		os.Exit(code)
	}
}

func run(locationsPath, flowsPath, propertiesPath, query string) int {
	fmt.Println("=== Flow Map Dataset Validation ===")
	fmt.Println()

	ds, err := dataset.LoadFiles(locationsPath, flowsPath, propertiesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	p := pipeline.New(pipeline.Options{Cluster: cluster.DefaultOptions()},
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	p.SetData(pipeline.Data{Locations: ds.Locations, Flows: ds.Flows, Config: ds.Config})
	ix := p.ClusterIndex()

	phases := []*phase{
		validateRecords(ds),
		validateReferences(p, ds.Config),
		validateHierarchy(ix),
		validateAggregation(ix, p.FlowsForKnownLocations()),
	}
	if query != "" {
		phases = append(phases, validateQuery(ds.Config, query))
	}

	fmt.Println()
	allPassed := true
	for _, ph := range phases {
		status := "\033[32mPASS\033[0m"
		if !ph.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(ph.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", ph.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d locations, %d flows (%d skipped), %d properties\n",
		len(ds.Locations), len(ds.Flows), ds.SkippedFlows, len(ds.Config))
	printLevels(ix)

	for _, ph := range phases {
		if ph.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", ph.name)
		for i, e := range ph.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Records ──
// Rows that parse but would be dropped or misdrawn.

func validateRecords(ds *dataset.Dataset) *phase {
	p := &phase{name: "Phase 1: Records (CSV rows)"}

	if ds.SkippedFlows > 0 {
		p.errorf("%d flow rows have an unparseable count", ds.SkippedFlows)
	}

	seen := make(map[string]int, len(ds.Locations))
	for i, l := range ds.Locations {
		if l.ID == "" {
			p.errorf("location row %d: empty id", i+2)
			continue
		}
		if first, ok := seen[l.ID]; ok {
			p.errorf("location row %d: duplicate id %q (first at row %d)", i+2, l.ID, first+2)
			continue
		}
		seen[l.ID] = i
	}

	for i, f := range ds.Flows {
		if math.IsNaN(f.Count) || math.IsInf(f.Count, 0) {
			p.errorf("flow row %d: count is not finite", i+2)
		}
	}
	return p
}

// ── Phase 2: References ──
// Locations with invalid coordinates and flows pointing at unknown ids.

func validateReferences(pl *pipeline.Pipeline, cfg domain.Config) *phase {
	p := &phase{name: "Phase 2: References (locations vs flows)"}

	d, ok := pl.Diagnostics()
	if !ok {
		p.errorf("dataset not loaded")
		return p
	}
	if cfg.IgnoreErrors() {
		if !d.Empty() {
			fmt.Printf("  Note: %s is set; %d omitted flows are not reported as errors\n",
				domain.ConfigIgnoreErrors, d.OmittedFlows())
		}
		return p
	}
	for _, msg := range d.Messages() {
		p.errorf("%s", msg)
	}
	return p
}

// ── Phase 3: Hierarchy ──
// Every level must cover every valid location exactly once.

func validateHierarchy(ix *cluster.Index) *phase {
	p := &phase{name: "Phase 3: Cluster hierarchy"}
	if ix == nil {
		p.errorf("cluster index was not built")
		return p
	}

	stats := ix.Stats()
	for i, s := range stats {
		if i > 0 && s.Nodes < stats[i-1].Nodes {
			p.errorf("zoom %d has %d nodes, fewer than %d at zoom %d", s.Zoom, s.Nodes, stats[i-1].Nodes, stats[i-1].Zoom)
		}
		covered := 0
		for _, n := range ix.ClusterNodesFor(s.Zoom) {
			if c, ok := n.(domain.ClusterNode); ok {
				covered += c.LeafCount
				continue
			}
			covered++
		}
		if covered != ix.LocationCount() {
			p.errorf("zoom %d covers %d locations, index has %d", s.Zoom, covered, ix.LocationCount())
		}
	}
	if n := len(stats); n > 0 && stats[n-1].Clusters != 0 {
		p.errorf("leaf zoom %d still has %d clusters", stats[n-1].Zoom, stats[n-1].Clusters)
	}
	return p
}

// ── Phase 4: Aggregation ──
// Aggregating flows to cluster level must neither lose nor invent magnitude.

func validateAggregation(ix *cluster.Index, flows []domain.Flow) *phase {
	p := &phase{name: "Phase 4: Flow aggregation"}
	if ix == nil {
		p.errorf("cluster index was not built")
		return p
	}

	var want float64
	for _, f := range flows {
		want += f.Count
	}
	for _, s := range ix.Stats() {
		agg := ix.AggregateFlows(flows, s.Zoom)
		if agg.Unmatched != 0 {
			p.errorf("zoom %d: %d known flows have no representative", s.Zoom, agg.Unmatched)
		}
		got := agg.SelfLoopCount
		for _, f := range agg.Flows {
			got += f.Count
		}
		if !floatEq(got, want) {
			p.errorf("zoom %d: aggregated magnitude %g, expected %g", s.Zoom, got, want)
		}
	}
	return p
}

// ── Phase 5: Shareable state ──

func validateQuery(cfg domain.Config, query string) *phase {
	p := &phase{name: "Phase 5: Shareable state"}

	s := state.InitialState(cfg, query)
	encoded := state.EncodeQuery(s)
	again := state.EncodeQuery(state.InitialState(cfg, encoded))
	if encoded != again {
		p.errorf("state string is not stable: %q then %q", encoded, again)
	}
	fmt.Printf("  Note: %q decodes to %q\n", query, encoded)
	return p
}

func printLevels(ix *cluster.Index) {
	if ix == nil {
		return
	}
	fmt.Println("\nClusters per zoom:")
	for _, s := range ix.Stats() {
		fmt.Printf("  z=%-2d nodes=%-5d clusters=%d\n", s.Zoom, s.Nodes, s.Clusters)
	}
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}
