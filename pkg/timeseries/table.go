package timeseries

import (
	"fmt"
	"sort"
)

// FactorTable holds named monthly series sharing one month axis. Column
// order is the declaration order and is preserved through merges, so any
// iteration over factors is deterministic.
type FactorTable struct {
	order []string
	cols  map[string]*MonthlySeries
}

// NewFactorTable creates an empty table.
func NewFactorTable() *FactorTable {
	return &FactorTable{cols: make(map[string]*MonthlySeries)}
}

// AddColumn adds a series under its own name. Duplicate names are an error
// rather than a silent overwrite.
func (t *FactorTable) AddColumn(s *MonthlySeries) error {
	if _, exists := t.cols[s.Name()]; exists {
		return fmt.Errorf("duplicate factor column %q", s.Name())
	}
	t.order = append(t.order, s.Name())
	t.cols[s.Name()] = s
	return nil
}

// Column returns the named series. A misnamed factor fails here, at the
// point of lookup, instead of surfacing as missing values downstream.
func (t *FactorTable) Column(name string) (*MonthlySeries, error) {
	s, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("unknown factor %q (have %v)", name, t.order)
	}
	return s, nil
}

// ColumnValue returns the named factor's value for one month.
func (t *FactorTable) ColumnValue(name string, m Month) (float64, bool) {
	s, ok := t.cols[name]
	if !ok {
		return 0, false
	}
	return s.Value(m)
}

// HasColumn reports whether the named factor is present.
func (t *FactorTable) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Columns returns the factor names in declaration order.
func (t *FactorTable) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// NonMissing returns the number of observations the named factor has, or 0
// for an unknown factor.
func (t *FactorTable) NonMissing(name string) int {
	s, ok := t.cols[name]
	if !ok {
		return 0
	}
	return s.Len()
}

// Months returns the sorted union of all column months.
func (t *FactorTable) Months() []Month {
	seen := make(map[Month]bool)
	var out []Month
	for _, name := range t.order {
		for _, m := range t.cols[name].Months() {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Merge adds every column of other into the table (outer join on month).
// Column name collisions abort the merge.
func (t *FactorTable) Merge(other *FactorTable) error {
	for _, name := range other.order {
		if err := t.AddColumn(other.cols[name]); err != nil {
			return err
		}
	}
	return nil
}

// CompleteMonths returns, in ascending order, the months for which every
// named column has an observation. Regressions are fit on exactly these
// rows.
func (t *FactorTable) CompleteMonths(names ...string) ([]Month, error) {
	for _, name := range names {
		if _, ok := t.cols[name]; !ok {
			return nil, fmt.Errorf("unknown factor %q (have %v)", name, t.order)
		}
	}
	var out []Month
	for _, m := range t.Months() {
		complete := true
		for _, name := range names {
			if _, ok := t.cols[name].Value(m); !ok {
				complete = false
				break
			}
		}
		if complete {
			out = append(out, m)
		}
	}
	return out, nil
}

// Rows extracts the values of the named columns over the given months, one
// row per month. Every (month, column) pair must be present; use
// CompleteMonths first.
func (t *FactorTable) Rows(months []Month, names ...string) ([][]float64, error) {
	out := make([][]float64, len(months))
	for i, m := range months {
		row := make([]float64, len(names))
		for j, name := range names {
			s, err := t.Column(name)
			if err != nil {
				return nil, err
			}
			v, ok := s.Value(m)
			if !ok {
				return nil, fmt.Errorf("factor %q has no value for %s", name, m)
			}
			row[j] = v
		}
		out[i] = row
	}
	return out, nil
}
