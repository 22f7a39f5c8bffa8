package library

import (
	"strings"
	"time"
)

// Book is a catalog title and its copy counters.
// AvailableQuantity never leaves the range [0, TotalQuantity].
type Book struct {
	ID                string `json:"id" db:"id" validate:"required,singleline"`
	Title             string `json:"title" db:"title" validate:"required,singleline"`
	Author            string `json:"author" db:"author" validate:"singleline"`
	ISBN              string `json:"isbn" db:"isbn" validate:"singleline"`
	Category          string `json:"category" db:"category" validate:"singleline"`
	TotalQuantity     int    `json:"total_quantity" db:"total_quantity" validate:"gte=0"`
	AvailableQuantity int    `json:"available_quantity" db:"available_quantity" validate:"gte=0,ltefield=TotalQuantity"`
}

// IsAvailable reports whether at least one copy can be issued.
func (b Book) IsAvailable() bool { return b.AvailableQuantity > 0 }

// Outstanding is the number of copies currently on loan.
func (b Book) Outstanding() int { return b.TotalQuantity - b.AvailableQuantity }

// MemberType decides a member's borrowing limit.
type MemberType string

const (
	MemberStudent MemberType = "STUDENT"
	MemberFaculty MemberType = "FACULTY"
)

const (
	studentLimit = 3
	facultyLimit = 5
)

// ParseMemberType accepts either member type in any letter case.
func ParseMemberType(s string) (MemberType, bool) {
	switch MemberType(strings.ToUpper(strings.TrimSpace(s))) {
	case MemberStudent:
		return MemberStudent, true
	case MemberFaculty:
		return MemberFaculty, true
	}
	return "", false
}

// MaxAllowed is the number of books a member of this type may hold at once.
func (t MemberType) MaxAllowed() int {
	if t == MemberFaculty {
		return facultyLimit
	}
	return studentLimit
}

// Member is a registered borrower.
type Member struct {
	ID               string     `json:"id" validate:"required,singleline"`
	Name             string     `json:"name" validate:"required,singleline"`
	Email            string     `json:"email" validate:"required,singleline"`
	Phone            string     `json:"phone" validate:"singleline"`
	Type             MemberType `json:"type" validate:"oneof=STUDENT FACULTY"`
	RegistrationDate time.Time  `json:"registration_date"`
	BorrowedCount    int        `json:"borrowed_count" validate:"gte=0"`
	MaxAllowed       int        `json:"max_allowed"`
}

// CanBorrow reports whether the member is below the borrowing limit.
func (m Member) CanBorrow() bool { return m.BorrowedCount < m.MaxAllowed }

// LoanStatus is ISSUED until the loan is returned. RETURNED is terminal.
type LoanStatus string

const (
	LoanIssued   LoanStatus = "ISSUED"
	LoanReturned LoanStatus = "RETURNED"
)

// Loan is one issue of one book copy to one member.
// DueDate is fixed at issue time. FineAmount is frozen when the loan
// is returned; before that use Loan.Fine for the live value.
type Loan struct {
	ID         string     `json:"id"`
	BookID     string     `json:"book_id"`
	MemberID   string     `json:"member_id"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	FineAmount Money      `json:"fine"`
	Status     LoanStatus `json:"status"`
}

// IsReturned reports whether the loan reached its terminal state.
func (l Loan) IsReturned() bool { return l.Status == LoanReturned }

// IsOverdue reports whether an issued loan is past its due date on today.
// A returned loan is never overdue.
func (l Loan) IsOverdue(today time.Time) bool {
	return !l.IsReturned() && Day(today).After(l.DueDate)
}

// OverdueDays is the number of whole days past due on today, or zero.
func (l Loan) OverdueDays(today time.Time) int {
	if l.IsReturned() {
		return 0
	}
	return OverdueDays(l.DueDate, today)
}

// Fine is the live fine for an issued loan and the frozen fine for a
// returned one.
func (l Loan) Fine(today time.Time) Money {
	if l.IsReturned() {
		return l.FineAmount
	}
	return FineFor(l.DueDate, today)
}

// Operator is a staff account allowed to run the library tool.
type Operator struct {
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"` // Don't serialize password hash
	Name         string `json:"name" db:"name"`
}
