package library

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Datum values a catalog entry may declare for its altitudes.
const (
	DatumMSL = "msl"
	DatumAGL = "agl"
)

// Entry is one recorded trajectory in a catalog: where its track file
// lives plus the summary statistics the eligibility filters run against.
type Entry struct {
	ID            string
	File          string
	DurationSec   float64
	MinAltFt      float64
	MaxAltFt      float64
	AvgSpeedKt    float64
	TerrainElevFt float64
	Datum         string
}

// LoadCatalog reads a catalog CSV. Columns are
// id,file,duration_s,min_alt_ft,max_alt_ft,avg_speed_kt,terrain_elev_ft,datum
// with a header row. Track file paths are resolved relative to the catalog
// file's directory.
func LoadCatalog(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 8
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("catalog %s has no entries", path)
	}

	dir := filepath.Dir(path)
	entries := make([]Entry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		e, err := parseEntry(row, dir)
		if err != nil {
			return nil, fmt.Errorf("catalog %s row %d: %w", path, i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseEntry(row []string, dir string) (Entry, error) {
	e := Entry{
		ID:    strings.TrimSpace(row[0]),
		Datum: strings.ToLower(strings.TrimSpace(row[7])),
	}
	if e.ID == "" {
		return Entry{}, fmt.Errorf("empty id")
	}

	file := strings.TrimSpace(row[1])
	if file == "" {
		return Entry{}, fmt.Errorf("empty file for %s", e.ID)
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	e.File = file

	if e.Datum != DatumMSL && e.Datum != DatumAGL {
		return Entry{}, fmt.Errorf("unknown datum %q for %s", row[7], e.ID)
	}

	fields := []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"duration_s", 2, &e.DurationSec},
		{"min_alt_ft", 3, &e.MinAltFt},
		{"max_alt_ft", 4, &e.MaxAltFt},
		{"avg_speed_kt", 5, &e.AvgSpeedKt},
		{"terrain_elev_ft", 6, &e.TerrainElevFt},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[f.idx]), 64)
		if err != nil {
			return Entry{}, fmt.Errorf("bad %s for %s: %w", f.name, e.ID, err)
		}
		*f.dst = v
	}

	if e.DurationSec <= 0 {
		return Entry{}, fmt.Errorf("non-positive duration for %s", e.ID)
	}
	if e.MaxAltFt < e.MinAltFt {
		return Entry{}, fmt.Errorf("max_alt_ft below min_alt_ft for %s", e.ID)
	}
	return e, nil
}
