package model

import (
	"fmt"
	"strings"
	"time"
)

// MaxDailyHours caps both a single report and the sum of a user's reports
// for one calendar day.
const MaxDailyHours = 8.0

// hourEpsilon absorbs float rounding when summing fractional hours.
const hourEpsilon = 1e-9

// OverDailyCap reports whether hours exceeds MaxDailyHours.
func OverDailyCap(hours float64) bool { return hours > MaxDailyHours+hourEpsilon }

// OverRecordCap reports whether a single report's hours exceed
// MaxDailyHours.  No tolerance: the column's CHECK constraint has none.
func OverRecordCap(hours float64) bool { return hours > MaxDailyHours }

// DateLayout is the wire and storage format of a report date.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time component.  It marshals as
// "YYYY-MM-DD".
type Date struct{ time.Time }

// ParseDate parses a "YYYY-MM-DD" string in UTC.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DSR is one daily status report row from the `dsrs` table.
type DSR struct {
	ID            uint64    `json:"id"`            // dsrs.id
	UserID        uint64    `json:"userId"`        // dsrs.user_id
	Project       string    `json:"project"`       // dsrs.project
	Date          Date      `json:"date"`          // dsrs.date
	EstimatedHour float64   `json:"estimatedHour"` // dsrs.estimated_hour
	Description   string    `json:"description"`   // dsrs.description
	CreatedAt     time.Time `json:"createdAt"`     // dsrs.created_at
	UpdatedAt     time.Time `json:"updatedAt"`     // dsrs.updated_at
}

// DSRPage is one page of a user's reports together with the total count.
type DSRPage struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Records []DSR `json:"records"`
}
