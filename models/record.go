package models

// Field is one named cell of a Record.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is an ordered set of named text fields: one CSV-equivalent row.
type Record []Field

func (r Record) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the named field or "" when absent.
func (r Record) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Without returns a copy of r minus the named fields.
func (r Record) Without(names ...string) Record {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := make(Record, 0, len(r))
	for _, f := range r {
		if !drop[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

// RecordSet is a header plus rows, the shape of a delimited-text table.
type RecordSet struct {
	Headers []string
	Rows    []Record
}

// NewRecordSet takes the union of field names in first-seen order as header.
func NewRecordSet(rows []Record) RecordSet {
	seen := make(map[string]bool)
	var headers []string
	for _, row := range rows {
		for _, f := range row {
			if !seen[f.Name] {
				seen[f.Name] = true
				headers = append(headers, f.Name)
			}
		}
	}
	return RecordSet{Headers: headers, Rows: rows}
}

// Table flattens the set into header + value rows for the CSV writer.
// Fields a row does not carry are written empty.
func (s RecordSet) Table() [][]string {
	out := make([][]string, 0, len(s.Rows)+1)
	if len(s.Headers) == 0 {
		return out
	}
	out = append(out, append([]string(nil), s.Headers...))
	for _, row := range s.Rows {
		line := make([]string, len(s.Headers))
		for i, h := range s.Headers {
			line[i] = row.Value(h)
		}
		out = append(out, line)
	}
	return out
}

// RecordsFromRows names each data row by the header row. Rows whose cells are
// all blank are skipped; missing trailing cells read as "".
func RecordsFromRows(rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}
	headers := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(Record, len(headers))
		for i, h := range headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			rec[i] = Field{Name: h, Value: value}
		}
		records = append(records, rec)
	}
	return records
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
