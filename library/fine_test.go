package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFineLaw(t *testing.T) {
	issued := date(2024, time.March, 1)
	due := DueDateFor(issued)
	require.Equal(t, date(2024, time.March, 15), due)

	tests := []struct {
		name     string
		returned time.Time
		days     int
		fine     Money
	}{
		{"same day", issued, 0, 0},
		{"on due date", issued.AddDate(0, 0, 14), 0, 0},
		{"one day late", issued.AddDate(0, 0, 15), 1, 500},
		{"six days late", issued.AddDate(0, 0, 20), 6, 3000},
		{"across month end", date(2024, time.April, 2), 18, 9000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.days, OverdueDays(due, tt.returned))
			assert.Equal(t, tt.fine, FineFor(due, tt.returned))
		})
	}
	assert.Equal(t, "30.00", FineFor(due, issued.AddDate(0, 0, 20)).String())
}

func TestDayIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2024, time.March, 1, 23, 59, 0, 0, time.FixedZone("X", 5*3600))
	early := time.Date(2024, time.March, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(late, early))
	assert.Equal(t, -1, DaysBetween(early, late))
	assert.Equal(t, date(2024, time.March, 1), Day(late))
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	a := time.Date(2024, time.March, 9, 12, 0, 0, 0, ny)
	b := time.Date(2024, time.March, 11, 12, 0, 0, 0, ny)
	assert.Equal(t, 2, DaysBetween(a, b))
}

func TestLoanFineLiveThenFrozen(t *testing.T) {
	issued := date(2024, time.January, 10)
	l := Loan{ID: "TXN00001", IssueDate: issued, DueDate: DueDateFor(issued), Status: LoanIssued}

	day20 := issued.AddDate(0, 0, 20)
	assert.True(t, l.IsOverdue(day20))
	assert.Equal(t, 6, l.OverdueDays(day20))
	assert.Equal(t, Money(3000), l.Fine(day20))
	assert.Equal(t, Money(3500), l.Fine(day20.AddDate(0, 0, 1)))

	l.Status = LoanReturned
	l.ReturnDate = &day20
	l.FineAmount = FineFor(l.DueDate, day20)
	later := day20.AddDate(0, 0, 30)
	assert.False(t, l.IsOverdue(later))
	assert.Equal(t, Money(3000), l.Fine(later))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.00", Money(0).String())
	assert.Equal(t, "5.00", FinePerDay.String())
	assert.Equal(t, "12.05", Money(1205).String())
	assert.Equal(t, "-0.50", Money(-50).String())

	for in, want := range map[string]Money{"30.0": 3000, "30.00": 3000, "0": 0, " 12.5 ": 1250, "0.1": 10} {
		got, err := ParseMoney(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMoney("abc")
	assert.Error(t, err)
	_, err = ParseMoney("NaN")
	assert.Error(t, err)

	b, err := Money(3000).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "30.00", string(b))
}
