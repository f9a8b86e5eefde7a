// Package dataset reads flow map tables from CSV.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/flowmap-core/internal/domain"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// Dataset is one loaded flow map.
type Dataset struct {
	Locations []domain.Location
	Flows     []domain.Flow
	Config    domain.Config

	// SkippedFlows counts flow rows whose count could not be parsed.
	SkippedFlows int
}

// ReadLocations parses an id,name,lat,lon table. Columns are matched by
// header name in any order; name is optional. Unparseable coordinates are
// kept as NaN so the location is reported as invalid rather than dropped.
func ReadLocations(r io.Reader) ([]domain.Location, error) {
	rows, cols, err := readTable(r, []string{"id", "lat", "lon"})
	if err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}
	out := make([]domain.Location, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Location{
			ID:   cols.get(row, "id"),
			Name: cols.get(row, "name"),
			Lat:  parseCoordinate(cols.get(row, "lat")),
			Lon:  parseCoordinate(cols.get(row, "lon")),
		})
	}
	return out, nil
}

// ReadFlows parses an origin,dest,count table. Rows with an unparseable
// count are skipped and counted.
func ReadFlows(r io.Reader) (flows []domain.Flow, skipped int, err error) {
	rows, cols, err := readTable(r, []string{"origin", "dest", "count"})
	if err != nil {
		return nil, 0, fmt.Errorf("read flows: %w", err)
	}
	flows = make([]domain.Flow, 0, len(rows))
	for _, row := range rows {
		count, err := strconv.ParseFloat(strings.TrimSpace(cols.get(row, "count")), 64)
		if err != nil || math.IsNaN(count) || math.IsInf(count, 0) {
			skipped++
			continue
		}
		flows = append(flows, domain.Flow{
			Origin: cols.get(row, "origin"),
			Dest:   cols.get(row, "dest"),
			Count:  count,
		})
	}
	return flows, skipped, nil
}

// ReadProperties parses a property,value table. Later rows win.
func ReadProperties(r io.Reader) (domain.Config, error) {
	rows, cols, err := readTable(r, []string{"property", "value"})
	if err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}
	cfg := make(domain.Config, len(rows))
	for _, row := range rows {
		if name := cols.get(row, "property"); name != "" {
			cfg[domain.ConfigPropName(name)] = cols.get(row, "value")
		}
	}
	return cfg, nil
}

// LoadFiles reads the three tables. propertiesPath may be empty.
func LoadFiles(locationsPath, flowsPath, propertiesPath string) (*Dataset, error) {
	ds := &Dataset{Config: domain.Config{}}

	if err := withFile(locationsPath, func(r io.Reader) error {
		var err error
		ds.Locations, err = ReadLocations(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := withFile(flowsPath, func(r io.Reader) error {
		var err error
		ds.Flows, ds.SkippedFlows, err = ReadFlows(r)
		return err
	}); err != nil {
		return nil, err
	}
	if propertiesPath != "" {
		if err := withFile(propertiesPath, func(r io.Reader) error {
			var err error
			ds.Config, err = ReadProperties(r)
			return err
		}); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// columns maps lower-cased header names to field positions.
type columns map[string]int

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func readTable(r io.Reader, required []string) ([][]string, columns, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: empty table", ErrMissingColumn)
	}
	if err != nil {
		return nil, nil, err
	}

	cols := make(columns, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if blank(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, cols, nil
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseCoordinate(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
