package timeseries

import "time"

// DailyPoint is one dated observation of a daily return series.
type DailyPoint struct {
	Date   time.Time
	Return float64
}

// CompoundMonthly compounds daily fractional returns into one return per
// calendar month: product of (1 + r) over the month, minus one. Input order
// does not matter; days land in their month regardless.
func CompoundMonthly(name string, daily []DailyPoint) *MonthlySeries {
	growth := make(map[Month]float64)
	for _, p := range daily {
		m := MonthOf(p.Date)
		g, ok := growth[m]
		if !ok {
			g = 1.0
		}
		growth[m] = g * (1.0 + p.Return)
	}

	out := NewMonthlySeries(name)
	for m, g := range growth {
		out.Set(m, g-1.0)
	}
	return out
}

// MonthEndLast reduces dated level observations to the last value seen in
// each calendar month. FRED daily series are collapsed this way before the
// return/difference transforms.
func MonthEndLast(name string, dates []time.Time, levels []float64) *MonthlySeries {
	type lastObs struct {
		day   time.Time
		level float64
	}
	last := make(map[Month]lastObs)
	for i, d := range dates {
		m := MonthOf(d)
		if cur, ok := last[m]; !ok || d.After(cur.day) {
			last[m] = lastObs{day: d, level: levels[i]}
		}
	}

	out := NewMonthlySeries(name)
	for m, obs := range last {
		out.Set(m, obs.level)
	}
	return out
}
