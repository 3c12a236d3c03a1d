package source

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"
)

// Schema is the discovered structure of the legacy store.
type Schema struct {
	Dialect string  `yaml:"dialect"`
	Tables  []Table `yaml:"tables"`
}

// Table is one discovered legacy table.
type Table struct {
	Name     string   `yaml:"name"`
	RowCount int64    `yaml:"row_count"`
	Columns  []Column `yaml:"columns"`
	Error    string   `yaml:"error,omitempty"`
}

// Inspect walks every user table. A table that cannot be described is reported with
// its error instead of aborting the walk.
func (r *Reader) Inspect(ctx context.Context) (Schema, error) {
	tables, err := r.Tables(ctx)
	if err != nil {
		return Schema{}, err
	}
	schema := Schema{Dialect: r.dialect.Name()}
	for _, name := range tables {
		t := Table{Name: name}
		cols, err := r.Columns(ctx, name)
		if err != nil {
			t.Error = err.Error()
			schema.Tables = append(schema.Tables, t)
			continue
		}
		t.Columns = cols
		if n, err := r.Count(ctx, name); err != nil {
			t.Error = err.Error()
		} else {
			t.RowCount = n
		}
		schema.Tables = append(schema.Tables, t)
	}
	return schema, nil
}

// WriteYAML renders v as a YAML document.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// SampleDocument converts a row set into name/value maps for display.
func SampleDocument(set *RowSet) []map[string]any {
	out := make([]map[string]any, 0, len(set.Rows))
	for _, row := range set.Rows {
		m := make(map[string]any, len(set.Columns))
		for i, col := range set.Columns {
			v := row.At(i)
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			m[col] = v
		}
		out = append(out, m)
	}
	return out
}
