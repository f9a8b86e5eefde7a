// Command genmock writes a synthetic flow map dataset (locations, flows and
// properties CSV files) for local runs and load testing. The output is
// deterministic for a given seed, and is read back through the dataset
// package so the files match what the service will load.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -locations 500 -flows 5000 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/couchcryptid/flowmap-core/internal/cluster"
	"github.com/couchcryptid/flowmap-core/internal/dataset"
	"github.com/couchcryptid/flowmap-core/internal/domain"
)

// hub is a population centre locations are scattered around.
type hub struct {
	name     string
	lat, lon float64
	weight   float64
}

var hubs = []hub{
	{"Dallas", 32.7767, -96.7970, 1.0},
	{"Houston", 29.7604, -95.3698, 1.1},
	{"Austin", 30.2672, -97.7431, 0.7},
	{"San Antonio", 29.4241, -98.4936, 0.8},
	{"El Paso", 31.7619, -106.4850, 0.3},
	{"Oklahoma City", 35.4676, -97.5164, 0.4},
	{"Denver", 39.7392, -104.9903, 0.5},
	{"Kansas City", 39.0997, -94.5786, 0.4},
	{"New Orleans", 29.9511, -90.0715, 0.3},
}

type options struct {
	locations int
	flows     int
	invalid   int
	seed      uint64
	spread    float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for locations.csv, flows.csv and properties.csv")
	var opts options
	flag.IntVar(&opts.locations, "locations", 300, "number of locations")
	flag.IntVar(&opts.flows, "flows", 3000, "number of flows")
	flag.IntVar(&opts.invalid, "invalid", 0, "number of locations with swapped coordinates")
	flag.Uint64Var(&opts.seed, "seed", 42, "random seed")
	flag.Float64Var(&opts.spread, "spread", 0.6, "scatter around each hub in degrees")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if opts.locations < 2 || opts.flows < 1 {
		return fmt.Errorf("need at least 2 locations and 1 flow")
	}

	locations, flows := generate(opts)

	paths := map[string]string{
		"locations":  filepath.Join(*out, "locations.csv"),
		"flows":      filepath.Join(*out, "flows.csv"),
		"properties": filepath.Join(*out, "properties.csv"),
	}
	if err := writeCSV(paths["locations"], locationRows(locations)); err != nil {
		return fmt.Errorf("writing locations: %w", err)
	}
	if err := writeCSV(paths["flows"], flowRows(flows)); err != nil {
		return fmt.Errorf("writing flows: %w", err)
	}
	if err := writeCSV(paths["properties"], propertyRows(opts)); err != nil {
		return fmt.Errorf("writing properties: %w", err)
	}
	log.Printf("wrote %d locations, %d flows to %s", len(locations), len(flows), *out)

	// Read back through the loader the service uses.
	ds, err := dataset.LoadFiles(paths["locations"], paths["flows"], paths["properties"])
	if err != nil {
		return fmt.Errorf("reading back: %w", err)
	}
	printStats(ds)
	return nil
}

func generate(opts options) ([]domain.Location, []domain.Flow) {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))

	var total float64
	for _, h := range hubs {
		total += h.weight
	}
	pickHub := func() int {
		r := rng.Float64() * total
		for i, h := range hubs {
			if r < h.weight {
				return i
			}
			r -= h.weight
		}
		return len(hubs) - 1
	}

	locations := make([]domain.Location, opts.locations)
	hubOf := make([]int, opts.locations)
	for i := range locations {
		h := pickHub()
		hubOf[i] = h
		lat := hubs[h].lat + rng.NormFloat64()*opts.spread
		lon := hubs[h].lon + rng.NormFloat64()*opts.spread
		if i < opts.invalid {
			lat, lon = lon, lat
		}
		locations[i] = domain.Location{
			ID:   fmt.Sprintf("L%04d", i),
			Name: fmt.Sprintf("%s %d", hubs[hubOf[i]].name, i),
			Lat:  round(lat, 5),
			Lon:  round(lon, 5),
		}
	}

	// Flows favour pairs within the same hub, with a heavy tailed magnitude.
	seen := make(map[[2]int]int, opts.flows)
	flows := make([]domain.Flow, 0, opts.flows)
	for range opts.flows * 4 {
		if len(flows) == opts.flows {
			break
		}
		o := rng.IntN(len(locations))
		d := rng.IntN(len(locations))
		if o == d {
			continue
		}
		if hubOf[o] != hubOf[d] && rng.Float64() < 0.6 {
			continue
		}
		count := math.Floor(math.Exp(rng.ExpFloat64()*1.5)) + 1
		key := [2]int{o, d}
		if i, ok := seen[key]; ok {
			flows[i].Count += count
			continue
		}
		seen[key] = len(flows)
		flows = append(flows, domain.Flow{Origin: locations[o].ID, Dest: locations[d].ID, Count: count})
	}
	return locations, flows
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func locationRows(locations []domain.Location) [][]string {
	rows := [][]string{{"id", "name", "lat", "lon"}}
	for _, l := range locations {
		rows = append(rows, []string{
			l.ID,
			l.Name,
			strconv.FormatFloat(l.Lat, 'f', -1, 64),
			strconv.FormatFloat(l.Lon, 'f', -1, 64),
		})
	}
	return rows
}

func flowRows(flows []domain.Flow) [][]string {
	rows := [][]string{{"origin", "dest", "count"}}
	for _, f := range flows {
		rows = append(rows, []string{f.Origin, f.Dest, strconv.FormatFloat(f.Count, 'f', -1, 64)})
	}
	return rows
}

func propertyRows(opts options) [][]string {
	return [][]string{
		{"property", "value"},
		{string(domain.ConfigTitle), fmt.Sprintf("Synthetic flows (seed %d)", opts.seed)},
		{string(domain.ConfigDescription), "Generated by genmock"},
		{string(domain.ConfigColorScheme), "Default"},
		{string(domain.ConfigDarkMode), "yes"},
		{string(domain.ConfigClustering), "yes"},
	}
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printStats(ds *dataset.Dataset) {
	fmt.Println("\n=== Dataset stats ===")
	fmt.Printf("Locations: %d\n", len(ds.Locations))
	fmt.Printf("Flows: %d (skipped %d)\n", len(ds.Flows), ds.SkippedFlows)

	var invalid int
	for _, l := range ds.Locations {
		if !l.Valid() {
			invalid++
		}
	}
	fmt.Printf("Invalid locations: %d\n", invalid)

	counts := make([]float64, len(ds.Flows))
	var sum float64
	for i, f := range ds.Flows {
		counts[i] = f.Count
		sum += f.Count
	}
	sort.Float64s(counts)
	if n := len(counts); n > 0 {
		fmt.Printf("Count: total=%g min=%g median=%g max=%g\n", sum, counts[0], counts[n/2], counts[n-1])
	}

	ix := cluster.Build(ds.Locations, ds.Flows, cluster.DefaultOptions())
	fmt.Println("\nClusters per zoom:")
	for _, s := range ix.Stats() {
		fmt.Printf("  z=%-2d nodes=%-5d clusters=%d\n", s.Zoom, s.Nodes, s.Clusters)
	}
}
