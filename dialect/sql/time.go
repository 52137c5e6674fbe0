package sql

import (
	"database/sql/driver"
	"time"
)

// naiveLayout is the text form of a timestamp without time zone.
const naiveLayout = "2006-01-02 15:04:05.999999"

// NaiveTime is a timestamp without time zone information. Only its wall
// clock fields are meaningful; dialects that store timestamps as TIMESTAMPTZ
// localize it into the connection time zone before sending it.
type NaiveTime struct {
	wall time.Time
}

// Naive returns the NaiveTime holding the wall clock of t. The location of t
// is discarded.
func Naive(t time.Time) NaiveTime {
	return NaiveTime{
		wall: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC),
	}
}

// Wall returns the wall clock as a time.Time in UTC.
func (n NaiveTime) Wall() time.Time { return n.wall }

// In interprets the wall clock in loc.
func (n NaiveTime) In(loc *time.Location) time.Time {
	w := n.wall
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
}

// AddDate returns the NaiveTime shifted by the given years, months and days.
func (n NaiveTime) AddDate(years, months, days int) NaiveTime {
	return NaiveTime{wall: n.wall.AddDate(years, months, days)}
}

// String returns the wall clock in the PostgreSQL TIMESTAMP text format.
func (n NaiveTime) String() string { return n.wall.Format(naiveLayout) }

// Value implements the driver.Valuer interface. The value is sent as text so
// the server parses it as TIMESTAMP rather than TIMESTAMPTZ.
func (n NaiveTime) Value() (driver.Value, error) { return n.String(), nil }
