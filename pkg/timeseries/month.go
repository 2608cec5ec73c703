package timeseries

import (
	"fmt"
	"time"
)

// Month identifies one calendar month. All series in the pipeline are keyed
// by Month so that data from daily, month-start and month-end conventions
// land on the same index.
type Month struct {
	Year int
	Mon  time.Month
}

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// ParseMonth parses "2006-01" or a full "2006-01-02" date string.
func ParseMonth(s string) (Month, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return MonthOf(t), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q (expected YYYY-MM or YYYY-MM-DD)", s)
	}
	return MonthOf(t), nil
}

// key maps a Month onto a single ordered integer axis.
func (m Month) key() int {
	return m.Year*12 + int(m.Mon) - 1
}

// Before reports whether m falls before other.
func (m Month) Before(other Month) bool {
	return m.key() < other.key()
}

// After reports whether m falls after other.
func (m Month) After(other Month) bool {
	return m.key() > other.key()
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	k := m.key() + 1
	return Month{Year: k / 12, Mon: time.Month(k%12 + 1)}
}

// EndOfMonth returns the last day of the month in UTC, the timestamp used
// when a dated row has to be emitted (CSV caches, reports).
func (m Month) EndOfMonth() time.Time {
	firstOfNext := time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Mon == 0
}
