package library

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// LoanPeriodDays is the fixed window between issue and due date.
	LoanPeriodDays = 14
	// FinePerDay is charged for every whole overdue day, without a cap.
	FinePerDay Money = 500

	dateLayout = "2006-01-02"
)

// Day truncates t to its calendar date. The result is midnight UTC of the
// date t shows in its own location, so day arithmetic never sees DST shifts.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// DueDateFor returns the due date of a loan issued on issued.
func DueDateFor(issued time.Time) time.Time {
	return Day(issued).AddDate(0, 0, LoanPeriodDays)
}

// OverdueDays is max(0, DaysBetween(due, today)).
func OverdueDays(due, today time.Time) int {
	if n := DaysBetween(due, today); n > 0 {
		return n
	}
	return 0
}

// FineFor is the fine owed on today for a loan due on due.
func FineFor(due, today time.Time) Money {
	return Money(OverdueDays(due, today)) * FinePerDay
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

// Money is a currency amount in hundredths of a unit.
type Money int64

// String renders the amount with two decimals, e.g. "30.00".
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, int64(m)/100, int64(m)%100)
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) { return []byte(m.String()), nil }

// ParseMoney reads a decimal amount such as "30.0" or "12.50".
func ParseMoney(s string) (Money, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return Money(math.Round(f * 100)), nil
}
