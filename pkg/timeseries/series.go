package timeseries

import (
	"fmt"
	"sort"
)

// MonthlySeries is an ordered sequence of (month, value) observations for a
// single named series. Values are fractional returns or level changes, never
// percentages.
type MonthlySeries struct {
	name   string
	months []Month // ascending, unique
	values map[Month]float64
}

// NewMonthlySeries creates an empty series with the given name.
func NewMonthlySeries(name string) *MonthlySeries {
	return &MonthlySeries{
		name:   name,
		values: make(map[Month]float64),
	}
}

// Name returns the series name used as its factor identifier.
func (s *MonthlySeries) Name() string {
	return s.name
}

// Set records the value for a month, replacing any previous observation.
func (s *MonthlySeries) Set(m Month, v float64) {
	if _, exists := s.values[m]; !exists {
		idx := sort.Search(len(s.months), func(i int) bool { return !s.months[i].Before(m) })
		s.months = append(s.months, Month{})
		copy(s.months[idx+1:], s.months[idx:])
		s.months[idx] = m
	}
	s.values[m] = v
}

// Value returns the observation for a month, if present.
func (s *MonthlySeries) Value(m Month) (float64, bool) {
	v, ok := s.values[m]
	return v, ok
}

// Months returns the observation months in ascending order.
func (s *MonthlySeries) Months() []Month {
	out := make([]Month, len(s.months))
	copy(out, s.months)
	return out
}

// Len returns the number of observations.
func (s *MonthlySeries) Len() int {
	return len(s.months)
}

// First returns the earliest observation month.
func (s *MonthlySeries) First() Month {
	if len(s.months) == 0 {
		return Month{}
	}
	return s.months[0]
}

// Last returns the latest observation month.
func (s *MonthlySeries) Last() Month {
	if len(s.months) == 0 {
		return Month{}
	}
	return s.months[len(s.months)-1]
}

// Values returns the observations aligned with Months().
func (s *MonthlySeries) Values() []float64 {
	out := make([]float64, len(s.months))
	for i, m := range s.months {
		out[i] = s.values[m]
	}
	return out
}

// Rename returns a copy of the series under a new name.
func (s *MonthlySeries) Rename(name string) *MonthlySeries {
	out := NewMonthlySeries(name)
	for _, m := range s.months {
		out.Set(m, s.values[m])
	}
	return out
}

// PctChange converts a level series into fractional month-over-month
// returns. The first observation is consumed; months following a zero level
// are skipped rather than emitting infinities.
func (s *MonthlySeries) PctChange(name string) *MonthlySeries {
	out := NewMonthlySeries(name)
	for i := 1; i < len(s.months); i++ {
		prev := s.values[s.months[i-1]]
		if prev == 0 {
			continue
		}
		cur := s.values[s.months[i]]
		out.Set(s.months[i], (cur-prev)/prev)
	}
	return out
}

// Diff converts a level series into scaled first differences,
// (level[t] - level[t-1]) * scale. Yield and spread series use scale = 0.01
// to move from percentage points to fractions.
func (s *MonthlySeries) Diff(name string, scale float64) *MonthlySeries {
	out := NewMonthlySeries(name)
	for i := 1; i < len(s.months); i++ {
		prev := s.values[s.months[i-1]]
		cur := s.values[s.months[i]]
		out.Set(s.months[i], (cur-prev)*scale)
	}
	return out
}

// TrimBefore drops observations earlier than start.
func (s *MonthlySeries) TrimBefore(start Month) *MonthlySeries {
	out := NewMonthlySeries(s.name)
	for _, m := range s.months {
		if m.Before(start) {
			continue
		}
		out.Set(m, s.values[m])
	}
	return out
}

// Sub returns a new series of element-wise differences a-b over the months
// both series cover. Used for excess returns (fund minus risk free).
func Sub(name string, a, b *MonthlySeries) *MonthlySeries {
	out := NewMonthlySeries(name)
	for _, m := range a.Months() {
		av, _ := a.Value(m)
		if bv, ok := b.Value(m); ok {
			out.Set(m, av-bv)
		}
	}
	return out
}

// String summarizes the series for log lines.
func (s *MonthlySeries) String() string {
	if s.Len() == 0 {
		return fmt.Sprintf("%s (empty)", s.name)
	}
	return fmt.Sprintf("%s (%d months, %s..%s)", s.name, s.Len(), s.First(), s.Last())
}
