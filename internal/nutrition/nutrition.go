// Package nutrition provides the static nutrition reference table keyed by
// product name. The table is loaded once at startup and is immutable
// afterwards; lookups are total and never fail for any label.
package nutrition

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Facts is the subset of nutrition columns carried on a prediction record.
// Field names follow the reference dataset's column names.
type Facts struct {
	Energy         float64 `json:"total_energi" firestore:"total_energi"`
	Sugar          float64 `json:"gula" firestore:"gula"`
	SaturatedFat   float64 `json:"lemak_jenuh" firestore:"lemak_jenuh"`
	Sodium         float64 `json:"garam" firestore:"garam"`
	Protein        float64 `json:"protein" firestore:"protein"`
	Grade          string  `json:"grade" firestore:"grade"`
	Recommendation string  `json:"rekomendasi" firestore:"rekomendasi"`
}

// Fields returns the record representation stored and returned for a row.
func (f Facts) Fields() map[string]any {
	return map[string]any{
		"total_energi": f.Energy,
		"gula":         f.Sugar,
		"lemak_jenuh":  f.SaturatedFat,
		"garam":        f.Sodium,
		"protein":      f.Protein,
		"grade":        f.Grade,
		"rekomendasi":  f.Recommendation,
	}
}

// Table maps product names to their nutrition facts.
type Table struct {
	rows map[string]Facts
}

// Load reads the reference CSV from disk.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open nutrition table: %w", err)
	}
	defer f.Close()
	return LoadReader(f)
}

// LoadReader parses the reference CSV. The header row names the columns;
// column order is not significant.
func LoadReader(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read nutrition header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"nama_produk", "total_energi", "gula", "lemak_jenuh", "garam", "protein", "grade", "rekomendasi"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("nutrition table missing column %q", required)
		}
	}

	rows := make(map[string]Facts)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read nutrition row: %w", err)
		}

		name := rec[col["nama_produk"]]
		if name == "" {
			return nil, fmt.Errorf("nutrition table line %d: empty product name", line)
		}

		facts := Facts{
			Grade:          rec[col["grade"]],
			Recommendation: rec[col["rekomendasi"]],
		}
		for _, c := range []struct {
			name string
			dst  *float64
		}{
			{"total_energi", &facts.Energy},
			{"gula", &facts.Sugar},
			{"lemak_jenuh", &facts.SaturatedFat},
			{"garam", &facts.Sodium},
			{"protein", &facts.Protein},
		} {
			raw := rec[col[c.name]]
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("nutrition table line %d: column %s: %w", line, c.name, err)
			}
			*c.dst = v
		}

		rows[name] = facts
	}

	return &Table{rows: rows}, nil
}

// Lookup returns the facts for a product name. A miss is reported through
// the boolean, never as an error, so unknown labels degrade to an empty
// record.
func (t *Table) Lookup(label string) (Facts, bool) {
	f, ok := t.rows[label]
	return f, ok
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	return len(t.rows)
}
